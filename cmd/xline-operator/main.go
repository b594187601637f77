/*
Copyright 2021 The Cockroach Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command xline-operator runs the XlineCluster operator process: it
// reconciles XlineCluster resources into a headless Service, a
// StatefulSet, and an optional backup CronJob, and runs the sidecar
// liveness aggregator alongside it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/bsbds/xline-operator-go/pkg/config"
	"github.com/bsbds/xline-operator-go/pkg/operator"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "xline-operator",
	Short: "xline-operator reconciles XlineCluster resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl.SetLogger(zap.New(zap.UseDevMode(false)))
		log := ctrl.Log.WithName("xline-operator")

		op := operator.New(cfg, log)
		return op.Run(cmd.Context())
	},
}

func init() {
	config.RegisterFlags(rootCmd, &cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
