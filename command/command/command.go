/*
 * KI10 - Operator command interface to devices.
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

// Package command describes how operator commands reach a device. A
// device lists the options it accepts and which of attach, set or show
// each option belongs to.
package command

// Option given on a command line, name=value or a bare switch.
type CmdOption struct {
	Name     string // Name of option.
	EqualOpt string // Text after = for file, name and list options.
	Value    int    // Value after = for number options.
}

// Option argument types.
const (
	OptionSwitch = 1 + iota // No argument.
	OptionFile              // File or directory name, may be quoted.
	OptionNumber            // Decimal number.
	OptionName              // Single word.
	OptionList              // One of OptionList.
)

// Commands an option may be given to.
const (
	ValidAttach = 1 << iota
	ValidSet
	ValidShow
)

type Options struct {
	Name        string   // Name of option.
	OptionType  int      // Type of argument.
	OptionValid int      // Commands option is valid for.
	OptionList  []string // Values allowed for list options.
}

// Command is implemented by devices that take operator commands.
type Command interface {
	Options(opt string) []Options               // Supported options.
	Attach(options []*CmdOption) error          // Attach device to file.
	Detach() error                              // Detach a device.
	Set(unset bool, options []*CmdOption) error // Set or unset options.
	Show(options []*CmdOption) (string, error)  // One line description.
}
