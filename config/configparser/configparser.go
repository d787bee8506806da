/*
 * KI10 - Configuration file reader.
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

// Package configparser reads the machine description. Each line names a
// keyword registered by a device or system package followed by what that
// keyword expects: a device number and options, a single value, a value
// and options, a file name, or nothing at all.
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/rcornwell/KI10/emu/device"
)

/*
   Line layout:

      # comment to end of line
      <keyword> <devnum> <option>...     device, devnum is octal
      <keyword> <value>                  single value
      <keyword> <value> <option>...      value with options
      <keyword> <path>                   file, path may be quoted
      <keyword>                          flag

   An option is a name, optionally followed by =value, then any number of
   ,name extras. A value is either "quoted" with "" standing for a quote,
   or runs up to the next space, comma or comment.
*/

// Option is one option from a configuration line.
type Option struct {
	Name     string    // Option name.
	EqualOpt string    // Text after =, empty if none.
	Value    []*string // Names following a comma.
}

// CreateFunc is called for each configuration line naming its keyword.
// devNum is device.NoDev unless the line gave a device number.
type CreateFunc func(devNum uint16, value string, options []Option, sys *device.System) error

// What follows a keyword.
type kind int

const (
	kindDevice kind = 1 + iota // Device number then options.
	kindValue                  // One value.
	kindValues                 // One value then options.
	kindFlag                   // Nothing.
	kindFile                   // A file name.
)

func (k kind) String() string {
	switch k {
	case kindDevice:
		return "device"
	case kindValue:
		return "value"
	case kindValues:
		return "value with options"
	case kindFlag:
		return "flag"
	case kindFile:
		return "file"
	}
	return "unknown"
}

type handler struct {
	kind   kind
	create CreateFunc
}

// Keywords known to the reader, upper case.
var handlers = map[string]handler{}

func add(keyword string, k kind, fn CreateFunc) {
	handlers[strings.ToUpper(keyword)] = handler{kind: k, create: fn}
}

// RegisterModel adds a device keyword, called from init.
func RegisterModel(keyword string, fn CreateFunc) {
	add(keyword, kindDevice, fn)
}

// RegisterSwitch adds a keyword that takes nothing.
func RegisterSwitch(keyword string, fn CreateFunc) {
	add(keyword, kindFlag, fn)
}

// RegisterOption adds a keyword taking one value.
func RegisterOption(keyword string, fn CreateFunc) {
	add(keyword, kindValue, fn)
}

// RegisterOptions adds a keyword taking a value and options.
func RegisterOptions(keyword string, fn CreateFunc) {
	add(keyword, kindValues, fn)
}

// RegisterFile adds a keyword taking a file name.
func RegisterFile(keyword string, fn CreateFunc) {
	add(keyword, kindFile, fn)
}

// Find handler for keyword, it must be of kind k.
func find(keyword string, k kind) (handler, error) {
	keyword = strings.ToUpper(keyword)
	h, ok := handlers[keyword]
	if !ok {
		return h, errors.New("unknown option: " + keyword)
	}
	if h.kind != k {
		return h, fmt.Errorf("%s is not a %s keyword", keyword, k)
	}
	return h, nil
}

// First word after a keyword.
type target struct {
	text   string // Word as given.
	devNum uint16 // Device number if hasDev.
	hasDev bool   // Word is an octal number below 1000.
}

// Device number given by target, or NoDev.
func (tg *target) device() uint16 {
	if tg.hasDev {
		return tg.devNum
	}
	return device.NoDev
}

// Run handler for keyword.
func invoke(keyword string, k kind, tg *target, options []Option, sys *device.System) error {
	h, err := find(keyword, k)
	if err != nil {
		return err
	}
	switch k {
	case kindDevice:
		return h.create(tg.devNum, "", options, sys)
	case kindFlag:
		return h.create(0, "", nil, sys)
	case kindFile:
		return h.create(device.NoDev, tg.text, nil, sys)
	case kindValue:
		options = []Option{}
	}
	return h.create(tg.device(), tg.text, options, sys)
}

// LoadConfigFile reads the named configuration file.
func LoadConfigFile(name string, sys *device.System) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return LoadConfig(file, sys)
}

// LoadConfig reads configuration lines from r, stopping at the first error.
func LoadConfig(r io.Reader, sys *device.System) error {
	in := bufio.NewReader(r)
	for n := 1; ; n++ {
		text, err := in.ReadString('\n')
		if text == "" && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		sc := scanner{text: text, lineNo: n, sys: sys}
		if err := sc.line(); err != nil {
			return err
		}
	}
}

// Position in one configuration line.
type scanner struct {
	text   string
	pos    int
	lineNo int
	sys    *device.System
}

func (sc *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf(format+", line: %d", append(args, sc.lineNo)...)
}

// Handle one line.
func (sc *scanner) line() error {
	sc.blank()
	if sc.done() {
		return nil
	}
	keyword := strings.ToUpper(sc.ident())
	h, ok := handlers[keyword]
	if !ok {
		return sc.errorf("no type: %s registered", keyword)
	}

	var tg *target
	var options []Option
	var err error
	switch h.kind {
	case kindDevice:
		if tg = sc.target(); tg == nil || !tg.hasDev {
			return sc.errorf("device %s requires device number", keyword)
		}
		if options, err = sc.options(); err != nil {
			return err
		}
	case kindValue:
		tg = sc.target()
		sc.blank()
		if tg == nil || !sc.done() {
			return sc.errorf("option: %s not followed by value", keyword)
		}
	case kindValues:
		if tg = sc.target(); tg == nil {
			return sc.errorf("option: %s not followed by value", keyword)
		}
		if options, err = sc.options(); err != nil {
			return err
		}
	case kindFlag:
		sc.blank()
		if !sc.done() {
			return sc.errorf("switch option: %s followed by options", keyword)
		}
	case kindFile:
		path, ok := sc.path()
		if !ok || path == "" {
			return sc.errorf("option: %s requires file name", keyword)
		}
		tg = &target{text: path}
	}
	return invoke(keyword, h.kind, tg, options, sc.sys)
}

// Skip white space.
func (sc *scanner) blank() {
	for sc.pos < len(sc.text) && unicode.IsSpace(rune(sc.text[sc.pos])) {
		sc.pos++
	}
}

// At end of line or start of comment.
func (sc *scanner) done() bool {
	return sc.pos >= len(sc.text) || sc.text[sc.pos] == '#'
}

// Character at current position, 0 at end of text.
func (sc *scanner) cur() byte {
	if sc.pos >= len(sc.text) {
		return 0
	}
	return sc.text[sc.pos]
}

func isAlnum(by byte) bool {
	return unicode.IsLetter(rune(by)) || unicode.IsNumber(rune(by))
}

// Run of letters and digits.
func (sc *scanner) ident() string {
	start := sc.pos
	for !sc.done() && isAlnum(sc.text[sc.pos]) {
		sc.pos++
	}
	return sc.text[start:sc.pos]
}

// Word after the keyword, nil if nothing follows.
func (sc *scanner) target() *target {
	sc.blank()
	if sc.done() {
		return nil
	}
	tg := &target{text: sc.ident(), devNum: device.NoDev}
	if n, err := strconv.ParseUint(tg.text, 8, 16); err == nil && n < 0o1000 {
		tg.devNum = uint16(n)
		tg.hasDev = true
	}
	return tg
}

// File name, quoted or up to white space. ok is false if anything
// other than a comment follows.
func (sc *scanner) path() (string, bool) {
	sc.blank()
	if sc.done() {
		return "", false
	}
	var path string
	ok := true
	if sc.cur() == '"' {
		path, ok = sc.value()
	} else {
		start := sc.pos
		for sc.pos < len(sc.text) && !unicode.IsSpace(rune(sc.text[sc.pos])) {
			sc.pos++
		}
		path = sc.text[start:sc.pos]
	}
	sc.blank()
	return path, ok && sc.done()
}

// Value starting at current position. A quoted value ends at its closing
// quote, otherwise at space, comma or comment. ok is false for a missing
// closing quote.
func (sc *scanner) value() (string, bool) {
	var b strings.Builder
	if sc.cur() != '"' {
		for sc.pos < len(sc.text) {
			by := sc.text[sc.pos]
			if by == '#' || by == ',' || unicode.IsSpace(rune(by)) {
				break
			}
			b.WriteByte(by)
			sc.pos++
		}
		return b.String(), true
	}
	sc.pos++
	for sc.pos < len(sc.text) {
		by := sc.text[sc.pos]
		sc.pos++
		if by == '"' {
			if sc.cur() != '"' {
				return b.String(), true
			}
			sc.pos++
		}
		b.WriteByte(by)
	}
	return b.String(), false
}

// Option name, empty at end of line.
func (sc *scanner) name() (string, error) {
	if sc.done() {
		return "", nil
	}
	if !unicode.IsLetter(rune(sc.text[sc.pos])) {
		return "", sc.errorf("invalid option encountered [%d]", sc.pos)
	}
	return sc.ident(), nil
}

// One option, nil at end of line.
func (sc *scanner) option() (*Option, error) {
	sc.blank()
	name, err := sc.name()
	if name == "" {
		return nil, err
	}
	opt := &Option{Name: name}
	if sc.cur() == '=' {
		sc.pos++
		v, ok := sc.value()
		if !ok {
			return nil, sc.errorf("invalid quoted string [%d]", sc.pos)
		}
		opt.EqualOpt = v
	}
	sc.blank()
	for !sc.done() && sc.cur() == ',' {
		sc.pos++
		sc.blank()
		extra, err := sc.name()
		if err != nil {
			return nil, err
		}
		if extra != "" {
			opt.Value = append(opt.Value, &extra)
		}
		sc.blank()
	}
	return opt, nil
}

// All options to end of line.
func (sc *scanner) options() ([]Option, error) {
	options := []Option{}
	for {
		opt, err := sc.option()
		if err != nil {
			return nil, err
		}
		if opt == nil {
			return options, nil
		}
		options = append(options, *opt)
	}
}
