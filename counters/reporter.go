/*
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
"License"); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/

package counters

import (
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

// Report logs a snapshot of c every interval until stopCh is closed.
func Report(c *TrafficCounters, interval time.Duration, stopCh <-chan struct{}) {
	wait.Until(func() {
		snapshot := c.Snapshot()
		klog.Infof("traffic counters: hosts=%v ports=%v", snapshot.Hosts, snapshot.Ports)
	}, interval, stopCh)
}
