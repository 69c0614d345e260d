// Copyright 2025 The Osier Authors
// This file is part of Osier.
//
// Osier is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Osier is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Osier. If not, see <http://www.gnu.org/licenses/>.

// osier-evm executes contract dispatch scenarios against an in-memory
// ledger and invokes precompiles directly.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"

	"github.com/osiertech/osier-evm/common"
	"github.com/osiertech/osier-evm/core/vm"
	"github.com/osiertech/osier-evm/internal/logging"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "Sets flags from a YAML/TOML file",
	}
	maxCodeSizeFlag = cli.StringFlag{
		Name:  "vm.maxcodesize",
		Usage: "Override the created-code size cap (e.g. 24kb)",
	}
	precompileAddrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "Precompile address (hex)",
	}
	precompileInputFlag = cli.StringFlag{
		Name:  "input",
		Usage: "Call input (hex)",
	}
)

func main() {
	app := &cli.App{
		Name:  "osier-evm",
		Usage: "contract execution engine scenario runner",
		Flags: append([]cli.Flag{&configFlag, &maxCodeSizeFlag}, logging.Flags...),
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Execute scenario files, one in-memory store each",
				ArgsUsage: "<scenario.toml|scenario.yaml> ...",
				Action:    runScenarios,
			},
			{
				Name:   "precompile",
				Usage:  "Invoke a precompiled contract on hex input",
				Flags:  []cli.Flag{&precompileAddrFlag, &precompileInputFlag},
				Action: runPrecompile,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runScenarios(ctx *cli.Context) error {
	logger := logging.SetupLoggerCtx("osier-evm", ctx)
	defer logger.Sync()

	if configPath := ctx.String(configFlag.Name); configPath != "" {
		if err := setFlagsFromConfigFile(ctx, configPath); err != nil {
			logger.Warn("failed setting config flags from yaml/toml file", zap.Error(err))
		}
	}

	if ctx.NArg() == 0 {
		return errors.New("no scenario files given")
	}
	maxCodeSize, err := maxCodeSizeOverride(ctx)
	if err != nil {
		return err
	}

	results := make([]*ScenarioResult, ctx.NArg())
	g := new(errgroup.Group)
	for i, path := range ctx.Args().Slice() {
		i, path := i, path
		g.Go(func() error {
			res, err := runScenario(path, maxCodeSize, logger)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return nil
}

func runPrecompile(ctx *cli.Context) error {
	addrBytes := common.FromHex(ctx.String(precompileAddrFlag.Name))
	if len(addrBytes) == 0 || len(addrBytes) > 20 {
		return errors.New("bad precompile address")
	}
	addr := common.BytesToAddress(addrBytes)
	p, ok := vm.PrecompiledContracts[addr]
	if !ok {
		return fmt.Errorf("no precompile at %s", addr.Hex())
	}

	input := common.FromHex(ctx.String(precompileInputFlag.Name))
	gas := p.RequiredGas(input)
	out, err := p.Run(input)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(map[string]any{
		"gas":    gas,
		"output": "0x" + common.Bytes2Hex(out),
	})
}

func maxCodeSizeOverride(ctx *cli.Context) (int, error) {
	s := ctx.String(maxCodeSizeFlag.Name)
	if s == "" {
		return 0, nil
	}
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("bad %s: %w", maxCodeSizeFlag.Name, err)
	}
	return int(size.Bytes()), nil
}

// setFlagsFromConfigFile applies file-provided values to flags the command
// line left unset.
func setFlagsFromConfigFile(ctx *cli.Context, filePath string) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	fileConfig := make(map[string]interface{})
	switch filepath.Ext(filePath) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, fileConfig); err != nil {
			return err
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &fileConfig); err != nil {
			return err
		}
	default:
		return errors.New("config files only accepted are .yaml and .toml")
	}
	for key, value := range fileConfig {
		if ctx.IsSet(key) {
			continue
		}
		if reflect.ValueOf(value).Kind() == reflect.Slice {
			sliceInterface := value.([]interface{})
			s := make([]string, len(sliceInterface))
			for i, v := range sliceInterface {
				s[i] = fmt.Sprintf("%v", v)
			}
			if err := ctx.Set(key, strings.Join(s, ",")); err != nil {
				return fmt.Errorf("failed setting %s flag with values=%s error=%w", key, s, err)
			}
		} else if err := ctx.Set(key, fmt.Sprintf("%v", value)); err != nil {
			return fmt.Errorf("failed setting %s flag with value=%v error=%w", key, value, err)
		}
	}
	return nil
}
