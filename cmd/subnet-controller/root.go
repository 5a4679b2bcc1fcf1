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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kube-ovs/subnet-controller/config"
	"github.com/kube-ovs/subnet-controller/controllers"
	"github.com/kube-ovs/subnet-controller/controllers/echo"
	"github.com/kube-ovs/subnet-controller/controllers/flows"
	"github.com/kube-ovs/subnet-controller/controllers/session"
	"github.com/kube-ovs/subnet-controller/counters"
	"github.com/kube-ovs/subnet-controller/forwarding"
	"github.com/kube-ovs/subnet-controller/metrics"
	"github.com/kube-ovs/subnet-controller/openflow"

	"k8s.io/klog/v2"
)

func newRootCommand() *cobra.Command {
	var configPath string

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)

	cmd := &cobra.Command{
		Use:   "subnet-controller",
		Short: "OpenFlow 1.3 controller that floods traffic inside one IPv4 subnet",
		Long: `subnet-controller programs a table-miss flow on every OpenFlow 1.3 switch
that connects to it and decides on each packet-in: IPv4 packets whose source
and destination both belong to the reference subnet are flooded, everything
else is dropped. Packets are counted per source address and ingress port.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}

			if err := setupLogging(cfg.Log, klogFlags, cmd.Flags()); err != nil {
				return err
			}

			return run(cfg, signalStopCh())
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.PersistentFlags().String("listen", openflow.DefaultListenAddr, "address switches connect to")
	cmd.PersistentFlags().String("subnet", forwarding.DefaultSubnet, "reference subnet flooded by the controller")
	cmd.PersistentFlags().String("switch-addr", "", "dial a passive switch at this address instead of listening")
	cmd.PersistentFlags().String("metrics-listen", ":9091", "address of the Prometheus metrics endpoint")
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(newConfigCommand(&configPath))
	return cmd
}

func newConfigCommand(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the controller configuration",
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return err
			}

			out, err := cfg.YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	configCmd.AddCommand(viewCmd)
	return configCmd
}

// setupLogging applies the configured verbosity unless -v was given and
// sends logs to a rotated file when one is configured.
func setupLogging(cfg config.LogConfig, klogFlags *flag.FlagSet, flags *pflag.FlagSet) error {
	if !flags.Changed("v") && cfg.Verbosity > 0 {
		if err := klogFlags.Set("v", strconv.Itoa(cfg.Verbosity)); err != nil {
			return err
		}
	}

	if cfg.File == "" {
		return nil
	}

	for name, value := range map[string]string{"logtostderr": "false", "one_output": "true"} {
		if err := klogFlags.Set(name, value); err != nil {
			return err
		}
	}

	klog.SetOutput(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	return nil
}

func signalStopCh() <-chan struct{} {
	stopCh := make(chan struct{})

	term := make(chan os.Signal, 1)
	signal.Notify(term, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-term
		close(stopCh)
	}()

	return stopCh
}

func run(cfg *config.Config, stopCh <-chan struct{}) error {
	klog.Info("starting subnet-controller")

	subnet, err := cfg.SubnetNet()
	if err != nil {
		return err
	}

	trafficCounters := counters.NewTrafficCounters()
	engine := forwarding.NewEngine(subnet, trafficCounters)
	installer := flows.NewInstaller()
	opts := session.Options{
		ReleaseDroppedBuffers: cfg.ReleaseDroppedBuffers,
	}

	server := openflow.NewServer(func(sender controllers.Sender) []controllers.Controller {
		// the session goes first so that hello is the first message sent
		return []controllers.Controller{
			session.NewSession(sender, installer, engine, opts),
			echo.NewEchoController(sender),
		}
	})

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		metricsServer.Start()
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				klog.Errorf("error stopping metrics server: %v", err)
			}
		}()
	}

	if cfg.StatsInterval > 0 {
		go counters.Report(trafficCounters, cfg.StatsInterval, stopCh)
	}

	go func() {
		<-stopCh
		klog.Info("shutting down")
		if err := server.Close(); err != nil {
			klog.Errorf("error closing openflow server: %v", err)
		}
	}()

	klog.Infof("reference subnet %s", subnet)
	if cfg.SwitchAddr != "" {
		server.DialAndServe(cfg.SwitchAddr, cfg.RedialInterval, stopCh)
		return nil
	}

	return server.ListenAndServe(cfg.Listen)
}
