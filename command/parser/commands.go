/*
 * KI10 - Operator commands.
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

package parser

import (
	"errors"
	"fmt"
	"log/slog"

	command "github.com/rcornwell/KI10/command/command"
)

var cmdList = []cmd{
	{Name: "attach", Min: 2, Process: attach, Complete: optionComplete(command.ValidAttach)},
	{Name: "detach", Min: 3, Process: detach, Complete: deviceComplete(command.ValidAttach)},
	{Name: "set", Min: 3, Process: set, Complete: optionComplete(command.ValidSet)},
	{Name: "unset", Min: 3, Process: unset, Complete: optionComplete(command.ValidSet)},
	{Name: "quit", Min: 1, Process: quit},
	{Name: "stop", Min: 3, Process: stop},
	{Name: "continue", Min: 1, Process: cont},
	{Name: "start", Min: 3, Process: start},
	{Name: "show", Min: 2, Process: show, Complete: deviceComplete(command.ValidShow)},
	{Name: "examine", Min: 1, Process: examine},
	{Name: "deposit", Min: 3, Process: deposit},
	{Name: "rewind", Min: 3, Process: rewind, Complete: deviceComplete(command.ValidSet)},
}

// Handle attach commands.
func attach(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Attach")

	_, dev, err := p.getDevice(line)
	if err != nil {
		return false, err
	}

	optlist, err := line.getOptions(dev, command.ValidAttach)
	if err != nil {
		return false, err
	}
	if len(optlist) == 0 {
		return false, errors.New("no options given to attach command")
	}
	return false, dev.Attach(optlist)
}

// Handle detach command.
func detach(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Detach")

	_, dev, err := p.getDevice(line)
	if err != nil {
		return false, err
	}
	return false, dev.Detach()
}

// Handle set and unset commands.
func setOptions(p *Parser, line *cmdLine, unset bool) (bool, error) {
	_, dev, err := p.getDevice(line)
	if err != nil {
		return false, err
	}

	optlist, err := line.getOptions(dev, command.ValidSet)
	if err != nil {
		return false, err
	}
	if len(optlist) == 0 {
		return false, errors.New("no options given to set command")
	}
	return false, dev.Set(unset, optlist)
}

func set(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Set")
	return setOptions(p, line, false)
}

func unset(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Unset")
	return setOptions(p, line, true)
}

// Handle commands that quit simulation.
func quit(_ *Parser, _ *cmdLine) (bool, error) {
	slog.Debug("Command Quit")
	return true, nil
}

// Stop the CPU.
func stop(p *Parser, _ *cmdLine) (bool, error) {
	slog.Debug("Command Stop")
	p.machine.SendStop()
	return false, nil
}

// Continue CPU from where it left off.
func cont(p *Parser, _ *cmdLine) (bool, error) {
	slog.Debug("Command Continue")
	p.machine.SendContinue()
	return false, nil
}

// Start the CPU at an address.
func start(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Start")
	addr, err := line.getOctal()
	if err != nil {
		return false, errors.New("start requires octal address")
	}
	if addr > 0o777777 {
		return false, errors.New("start address too large")
	}
	p.machine.SendStart(addr)
	return false, nil
}

// Process the show command.
func show(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Show")
	line.skipSpace()
	pos := line.pos
	switch line.getWord(false) {
	case "all":
		// Controllers with several device numbers show once.
		seen := map[string]bool{}
		for _, devNum := range p.bus.List() {
			dev, ok := p.bus.Get(devNum).(command.Command)
			if !ok {
				continue
			}
			out, err := dev.Show(nil)
			if err != nil || seen[out] {
				continue
			}
			seen[out] = true
			fmt.Fprintln(p.out, out)
		}
		return false, nil
	case "cpu":
		fmt.Fprintln(p.out, p.machine.Status())
		return false, nil
	case "":
		if line.isEOL() {
			return false, errors.New("show must be given device, cpu or all")
		}
	}

	line.pos = pos
	_, dev, err := p.getDevice(line)
	if err != nil {
		return false, err
	}
	out, err := dev.Show(nil)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(p.out, out)
	return false, nil
}

// Rewind a tape type device.
func rewind(p *Parser, line *cmdLine) (bool, error) {
	slog.Debug("Command Rewind")
	_, dev, err := p.getDevice(line)
	if err != nil {
		return false, err
	}
	if _, ok := matchOption("rewind", dev.Options(""), command.ValidSet); !ok {
		return false, errors.New("device can't be rewound")
	}
	return false, dev.Set(false, []*command.CmdOption{{Name: "rewind"}})
}
