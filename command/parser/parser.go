/*
 * KI10 - Operator command parser.
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
	"io"
	"strings"
	"unicode"

	command "github.com/rcornwell/KI10/command/command"
	"github.com/rcornwell/KI10/emu/device"
)

// Machine is the processor side of the operator console.
type Machine interface {
	SendStart(addr uint64)
	SendContinue()
	SendStop()
	Examine(addr uint64) (uint64, bool)
	Deposit(addr, data uint64) bool
	Status() string
}

// Parser executes operator commands against a machine and its devices.
type Parser struct {
	machine Machine
	bus     *device.Bus
	out     io.Writer
}

type cmd struct {
	Name     string // Command name.
	Min      int    // Minimum match size.
	Process  func(*Parser, *cmdLine) (bool, error)
	Complete func(*Parser, *cmdLine) []string
}

type cmdLine struct {
	line string // Current command.
	pos  int    // Position in line.
}

// New creates a parser writing command output to out.
func New(machine Machine, bus *device.Bus, out io.Writer) *Parser {
	return &Parser{machine: machine, bus: bus, out: out}
}

// Execute the command line given. Returns true when the simulation
// should quit.
func (p *Parser) ProcessCommand(commandLine string) (bool, error) {
	line := cmdLine{line: commandLine}
	command := line.getWord(false)
	if command == "" {
		if !line.isEOL() {
			return false, errors.New("command not found: " + strings.TrimSpace(commandLine))
		}
		return false, nil
	}

	match := matchList(command)
	if len(match) == 0 {
		return false, errors.New("command not found: " + command)
	}

	if len(match) > 1 {
		return false, errors.New("unique command not found: " + command)
	}

	return match[0].Process(p, &line)
}

// Check if command matches at least to minimum length.
func matchCommand(match cmd, command string) bool {
	if len(command) > len(match.Name) {
		return false
	}
	return strings.HasPrefix(match.Name, command) && len(command) >= match.Min
}

// Check if command matches one of the commands.
func matchList(command string) []cmd {
	var match []cmd
	for _, m := range cmdList {
		if m.Name == command {
			return []cmd{m}
		}
		if matchCommand(m, command) {
			match = append(match, m)
		}
	}
	return match
}

// Match list of options.
func matchOption(option string, optList []command.Options, cmdType int) (command.Options, bool) {
	for _, opt := range optList {
		if (opt.OptionValid & cmdType) == 0 {
			continue
		}
		if opt.Name == option {
			return opt, true
		}
	}
	return command.Options{}, false
}

// Skip forward over line until none whitespace character found.
func (line *cmdLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

// Check if at end of line.
func (line *cmdLine) isEOL() bool {
	if line.pos >= len(line.line) {
		return true
	}
	return line.line[line.pos] == '#'
}

// Return current character without moving.
func (line *cmdLine) peek() byte {
	if line.isEOL() {
		return 0
	}
	return line.line[line.pos]
}

// Return current character and advance to next.
func (line *cmdLine) getCurrent() byte {
	if line.isEOL() {
		return 0
	}
	by := line.line[line.pos]
	line.pos++
	return by
}

// Check current character is a separator.
func (line *cmdLine) atSeparator() bool {
	by := line.peek()
	return by == 0 || unicode.IsSpace(rune(by))
}

// Parse string that is "string" or just string.
func (line *cmdLine) parseQuoteString() (string, bool) {
	line.skipSpace()
	by := line.getCurrent()
	if by == 0 {
		return "", false
	}

	if by != '"' {
		value := ""
		for by != 0 && !unicode.IsSpace(rune(by)) {
			value += string(by)
			by = line.getCurrent()
		}
		return value, true
	}

	// In a quoted string "" gives a single quote.
	value := ""
	for {
		by = line.getCurrent()
		switch {
		case by == 0:
			return value, false
		case by == '"' && line.peek() == '"':
			line.pos++
			value += "\""
		case by == '"':
			return value, true
		default:
			value += string(by)
		}
	}
}

// Parse decimal number.
func (line *cmdLine) getNumber() (int, error) {
	line.skipSpace()
	if line.isEOL() || !unicode.IsDigit(rune(line.peek())) {
		return 0, errors.New("not a number")
	}

	value := 0
	for unicode.IsDigit(rune(line.peek())) {
		value = (value * 10) + int(line.getCurrent()-'0')
	}
	if !line.atSeparator() {
		return 0, errors.New("not a number")
	}
	return value, nil
}

// Parse octal number, stops at first non octal digit.
func (line *cmdLine) getOctal() (uint64, error) {
	line.skipSpace()
	by := line.peek()
	if by < '0' || by > '7' {
		return 0, errors.New("not an octal number")
	}

	value := uint64(0)
	for {
		by = line.peek()
		if by < '0' || by > '7' {
			break
		}
		value = (value << 3) + uint64(line.getCurrent()-'0')
		if value > 0o777777777777 {
			return 0, errors.New("number too large")
		}
	}
	return value, nil
}

// Parse a name made of letters and digits. With equal set an = ends the
// word and is consumed. Returns empty if the word is followed by anything
// other than a separator.
func (line *cmdLine) getWord(equal bool) string {
	line.skipSpace()

	pos := line.pos
	value := ""
	for {
		by := line.peek()
		if by == 0 || unicode.IsSpace(rune(by)) {
			break
		}
		if by == '=' && equal && value != "" {
			line.pos++
			break
		}
		if !unicode.IsLetter(rune(by)) && (value == "" || !unicode.IsDigit(rune(by))) {
			line.pos = pos
			return ""
		}
		value += string(by)
		line.pos++
	}

	return strings.ToLower(value)
}

// Check if last word ended in equal sign.
func (line *cmdLine) hadEqual() bool {
	return line.pos > 0 && line.line[line.pos-1] == '='
}

// Get an option.
func (line *cmdLine) getOption(opts []command.Options, cmdType int) (*command.CmdOption, error) {
	pos := line.pos
	name := line.getWord(true)
	equal := line.hadEqual()

	if name == "" {
		if line.isEOL() {
			return nil, nil
		}
		if cmdType != command.ValidAttach {
			return nil, errors.New("invalid option")
		}
	}

	match, ok := matchOption(name, opts, cmdType)
	if !ok {
		// For attach commands a bare name is taken as a file name.
		fileOpt, found := fileOption(opts)
		if cmdType != command.ValidAttach || equal || !found {
			return nil, errors.New("unknown option: " + name)
		}
		line.pos = pos
		file, ok := line.parseQuoteString()
		if !ok {
			return nil, errors.New("invalid file name")
		}
		return &command.CmdOption{Name: fileOpt, EqualOpt: file}, nil
	}

	opt := command.CmdOption{Name: name}
	if match.OptionType == command.OptionSwitch {
		if equal {
			return nil, errors.New("switch option can't have arguments: " + name)
		}
		return &opt, nil
	}
	if !equal {
		return nil, errors.New("option requires value: " + name)
	}

	switch match.OptionType {
	case command.OptionFile, command.OptionName:
		value, ok := line.parseQuoteString()
		if !ok {
			return nil, errors.New("value not valid: " + name)
		}
		opt.EqualOpt = value
	case command.OptionNumber:
		num, err := line.getNumber()
		if err != nil {
			return nil, errors.New("number options must be followed by number: " + name)
		}
		opt.Value = num
	case command.OptionList:
		value := line.getWord(false)
		for _, mod := range match.OptionList {
			if strings.ToLower(mod) == value {
				opt.EqualOpt = value
				return &opt, nil
			}
		}
		return nil, errors.New("option not valid for type: " + name)
	default:
		return nil, errors.New("invalid option type: " + name)
	}
	return &opt, nil
}

// Find the option a bare file name attaches to.
func fileOption(opts []command.Options) (string, bool) {
	for _, opt := range opts {
		if opt.OptionType == command.OptionFile && (opt.OptionValid&command.ValidAttach) != 0 {
			return opt.Name, true
		}
	}
	return "", false
}

// Scan options and return a list of options.
func (line *cmdLine) getOptions(dev command.Command, cmdType int) ([]*command.CmdOption, error) {
	optlist := []*command.CmdOption{}
	opts := dev.Options("")
	for {
		opt, err := line.getOption(opts, cmdType)
		if err != nil {
			return optlist, err
		}
		if opt == nil {
			break
		}
		optlist = append(optlist, opt)
	}
	return optlist, nil
}

// Return device number and command interface for device. Devices are
// given by octal number or name.
func (p *Parser) getDevice(line *cmdLine) (uint16, command.Command, error) {
	line.skipSpace()
	var devNum uint16
	var dev device.Device

	if unicode.IsDigit(rune(line.peek())) {
		num, err := line.getOctal()
		if err != nil || !line.atSeparator() {
			return 0, nil, errors.New("device must be octal number or name")
		}
		if num > 0o774 {
			return 0, nil, errors.New("device number too large")
		}
		devNum = uint16(num)
		dev = p.bus.Get(devNum)
	} else {
		name := line.getWord(false)
		if name == "" {
			return 0, nil, errors.New("device must be octal number or name")
		}
		devNum, dev = p.bus.Find(strings.ToUpper(name))
		if dev == nil {
			return 0, nil, errors.New("device not found: " + name)
		}
	}

	if dev == nil {
		return 0, nil, fmt.Errorf("device %03o not found", devNum)
	}
	cmd, ok := dev.(command.Command)
	if !ok {
		return 0, nil, fmt.Errorf("device %03o does not support commands", devNum)
	}
	return devNum, cmd, nil
}
