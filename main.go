/*
 * KI10 - Emulator main program.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"io"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	parser "github.com/rcornwell/KI10/command/parser"
	reader "github.com/rcornwell/KI10/command/reader"
	config "github.com/rcornwell/KI10/config/configparser"
	core "github.com/rcornwell/KI10/emu/core"
	"github.com/rcornwell/KI10/emu/cpu"
	"github.com/rcornwell/KI10/emu/device"
	master "github.com/rcornwell/KI10/emu/master"
	"github.com/rcornwell/KI10/emu/memory"
	"github.com/rcornwell/KI10/emu/timer"
	logger "github.com/rcornwell/KI10/util/logger"
	"github.com/rcornwell/KI10/util/terminal"

	_ "github.com/rcornwell/KI10/config/debugconfig"
	_ "github.com/rcornwell/KI10/config/sysconfig"
	_ "github.com/rcornwell/KI10/emu/modelCTY"
	_ "github.com/rcornwell/KI10/emu/modelDPC"
	_ "github.com/rcornwell/KI10/emu/modelLPT"
	_ "github.com/rcornwell/KI10/emu/modelPT"
	_ "github.com/rcornwell/KI10/emu/modelTM10"
)

// Memory size in K words before any MEMORY line.
const defaultMemory = 256

// Devices able to hand over the local console.
type consoler interface {
	Console() *terminal.Terminal
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "KI10.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optProfile := getopt.StringLong("profile", 'p', "", "Write cpu or mem profile")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	switch *optProfile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	default:
		slog.Error("Profile must be cpu or mem", "profile", *optProfile)
		os.Exit(1)
	}

	var logFile io.Writer
	if *optLogFile != "" {
		file, err := os.Create(*optLogFile)
		if err != nil {
			slog.Error("Unable to create log file", "error", err)
			os.Exit(1)
		}
		defer file.Close()
		logFile = file
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, *optDebug))
	slog.SetDefault(Logger)

	Logger.Info("KI10 Started")
	if err := run(*optConfig); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	Logger.Info("Servers stopped.")
}

// Build the machine from configuration and run it until the operator quits.
func run(configFile string) error {
	mem := memory.New(defaultMemory)
	bus := device.NewBus()
	c, err := cpu.New(mem, bus)
	if err != nil {
		return err
	}

	masterChannel := make(chan master.Packet)
	cpuCore := core.New(c, bus, masterChannel)
	sys := &device.System{
		Bus:   bus,
		Mem:   mem,
		Irq:   c,
		Pacer: cpuCore,
		Post:  master.Channel(masterChannel),
	}

	if err := config.LoadConfigFile(configFile, sys); err != nil {
		return err
	}
	c.SetSwitches(sys.Switches)

	clock := timer.NewTimer(sys.Post)
	clock.Start()

	var g errgroup.Group
	g.Go(func() error {
		cpuCore.Start()
		return nil
	})

	if sys.AutoBoot {
		slog.Info("Booting", "address", sys.Boot)
		cpuCore.SendStart(sys.Boot)
	}

	g.Go(func() error {
		defer func() {
			clock.Shutdown()
			cpuCore.Stop()
		}()
		if err := console(bus, sys.Post); err != nil {
			return err
		}
		reader.ConsoleReader(parser.New(cpuCore, bus, os.Stdout), os.Stdout)
		return nil
	})
	return g.Wait()
}

// Hand the terminal to the console teletype until the escape character.
func console(bus *device.Bus, post master.Poster) error {
	devNum, dev := bus.Find("CTY")
	cty, ok := dev.(consoler)
	if !ok || cty.Console() == nil {
		return nil
	}
	t := cty.Console()
	slog.Info("Console attached, type ^\\ for operator commands")
	err := t.Run(devNum, post, terminal.Escape)
	if cerr := t.Close(); err == nil {
		err = cerr
	}
	return err
}
