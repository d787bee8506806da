/*
 * KI10 - Operator command completion.
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
	"slices"
	"strings"
	"unicode"

	command "github.com/rcornwell/KI10/command/command"
)

// Called to complete a command line, during line editing.
func (p *Parser) CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord(false)

	// We have a command, let it try and complete it.
	if name != "" && line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		match := matchList(name)
		if len(match) != 1 || match[0].Complete == nil {
			return nil
		}
		return match[0].Complete(p, &line)
	}

	var matches []string
	for _, m := range cmdList {
		if strings.HasPrefix(m.Name, name) {
			matches = append(matches, m.Name+" ")
		}
	}
	slices.Sort(matches)
	return matches
}

// Split off the word being typed. Returns the line before it, the word
// and whether the word is finished.
func (line *cmdLine) scanWord() (string, string, bool) {
	line.skipSpace()
	start := line.pos
	for line.pos < len(line.line) && !unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
	return line.line[:start], line.line[start:line.pos], line.pos < len(line.line)
}

// Check if device has any option valid for command.
func validFor(dev command.Command, cmdType int) bool {
	if cmdType == command.ValidShow {
		return true
	}
	for _, opt := range dev.Options("") {
		if (opt.OptionValid & cmdType) != 0 {
			return true
		}
	}
	return false
}

// Match device names against word being typed.
func (p *Parser) matchDevice(line *cmdLine, cmdType int) ([]string, bool) {
	leading, word, done := line.scanWord()
	if done {
		return nil, true
	}
	word = strings.ToLower(word)
	devices := []string{}
	for _, devNum := range p.bus.List() {
		dev, ok := p.bus.Get(devNum).(command.Command)
		if !ok || !validFor(dev, cmdType) {
			continue
		}
		name := strings.ToLower(p.bus.Name(devNum))
		if strings.HasPrefix(name, word) {
			devices = append(devices, leading+name+" ")
		}
	}
	return devices, false
}

// Complete the device name argument.
func deviceComplete(cmdType int) func(*Parser, *cmdLine) []string {
	return func(p *Parser, line *cmdLine) []string {
		devices, _ := p.matchDevice(line, cmdType)
		return devices
	}
}

// Complete device name, then the options it takes.
func optionComplete(cmdType int) func(*Parser, *cmdLine) []string {
	return func(p *Parser, line *cmdLine) []string {
		pos := line.pos
		devices, done := p.matchDevice(line, cmdType)
		if !done {
			return devices
		}

		line.pos = pos
		_, dev, err := p.getDevice(line)
		if err != nil {
			return nil
		}

		// Skip options already given.
		leading, word, done := line.scanWord()
		for done {
			leading, word, done = line.scanWord()
		}
		word = strings.ToLower(word)

		opts := []string{}
		for _, opt := range dev.Options("") {
			if (opt.OptionValid&cmdType) == 0 || !strings.HasPrefix(opt.Name, word) {
				continue
			}
			if opt.OptionType == command.OptionSwitch {
				opts = append(opts, leading+opt.Name+" ")
			} else {
				opts = append(opts, leading+opt.Name+"=")
			}
		}
		return opts
	}
}
