// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// block-bench builds generated blocks concurrently through a configured
// block factory and reports throughput and memory use.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/matrixorigin/moblock/pkg/common/mpool"
	"github.com/matrixorigin/moblock/pkg/config"
	"github.com/matrixorigin/moblock/pkg/logutil"
	"github.com/matrixorigin/moblock/pkg/testutil"
)

var (
	configFlag      = flag.String("config", "", "configuration file, defaults apply when empty")
	printConfigFlag = flag.Bool("print-config", false, "print the effective configuration and exit")
	positionsFlag   = flag.Int("positions", 8096, "positions per block")
	nullFlag        = flag.Float64("null-probability", 0.1, "probability of a null position")
	mvFlag          = flag.Float64("mv-probability", 0.3, "probability of a multi-valued position")
	maxRunFlag      = flag.Int("max-run", 100, "maximum values of a multi-valued position")
	iterationsFlag  = flag.Int("iterations", 1000, "blocks to build")
	workersFlag     = flag.Int("workers", 8, "concurrent builders")
	seedFlag        = flag.Int64("seed", 1, "generator seed")
)

func loadConfig() (*config.Config, error) {
	if *configFlag == "" {
		return config.Parse("")
	}
	return config.LoadFile(*configFlag)
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *printConfigFlag {
		if err = toml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	f, err := config.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *cpuProfilePathFlag != "" {
		stop := startCPUProfile()
		defer stop()
	}
	if *allocsProfilePathFlag != "" {
		defer writeAllocsProfile()
	}

	res, err := runBench(f, benchOptions{
		gen: testutil.GenOptions{
			TotalPositions:  *positionsFlag,
			NullProbability: *nullFlag,
			MvProbability:   *mvFlag,
			MaxRun:          *maxRunFlag,
			Seed:            *seedFlag,
		},
		iterations: *iterationsFlag,
		workers:    *workersFlag,
	})
	if err != nil {
		logutil.Error("bench failed", zap.Error(err))
		os.Exit(1)
	}
	logutil.Info("bench done",
		zap.Int64("blocks", res.blocks),
		zap.Int64("big-array-blocks", res.bigCount),
		zap.Int64("values", res.values),
		zap.Int64("sum", res.sum),
		zap.Duration("elapsed", res.elapsed))
	fmt.Println(mpool.ReportMemUsage(cfg.Memory.PoolTag))
}
