/*
 * KI10 - Configuration file reader tests.
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

package configparser

import (
	"strings"
	"testing"

	D "github.com/rcornwell/KI10/emu/device"
)

// What the last handler was called with.
type call struct {
	kind    string
	devNum  uint16
	value   string
	options []Option
	sys     *D.System
}

var last call

func recorder(k string) CreateFunc {
	return func(devNum uint16, value string, options []Option, sys *D.System) error {
		last = call{kind: k, devNum: devNum, value: value, options: options, sys: sys}
		return nil
	}
}

// Fresh set of keywords for each test.
func setupKeywords() {
	handlers = map[string]handler{}
	last = call{devNum: 0xffff, value: "error"}
	RegisterModel("testDevice", recorder("model"))
	RegisterSwitch("testswitch", recorder("switch"))
	RegisterOption("testoption", recorder("option"))
	RegisterOptions("testlist", recorder("list"))
	RegisterFile("testfile", recorder("file"))
}

func parse(text string) error {
	sc := scanner{text: text, lineNo: 1}
	return sc.line()
}

// Keywords only run as the kind they were registered as.
func TestKeywordKind(t *testing.T) {
	setupKeywords()

	tg := &target{text: "100", devNum: 0o100, hasDev: true}
	if err := invoke("test", kindDevice, tg, nil, nil); err == nil {
		t.Errorf("Unknown keyword accepted")
	}
	if err := invoke("TESTDEVICE", kindDevice, tg, nil, nil); err != nil {
		t.Errorf("Device keyword failed: %v", err)
	}
	if last.kind != "model" || last.devNum != 0o100 || last.value != "" {
		t.Errorf("Device got: %s %03o '%s'", last.kind, last.devNum, last.value)
	}
	if err := invoke("testdevice", kindFlag, tg, nil, nil); err == nil {
		t.Errorf("Device keyword run as flag")
	}
	if err := invoke("testswitch", kindDevice, tg, nil, nil); err == nil {
		t.Errorf("Flag keyword run as device")
	}

	tg = &target{text: "test", devNum: D.NoDev}
	if err := invoke("testoption", kindValue, tg, nil, nil); err != nil {
		t.Errorf("Value keyword failed: %v", err)
	}
	if last.devNum != D.NoDev || last.value != "test" {
		t.Errorf("Value got: %03o '%s'", last.devNum, last.value)
	}
	if err := invoke("testoption", kindDevice, tg, nil, nil); err == nil {
		t.Errorf("Value keyword run as device")
	}
	if err := invoke("testswitch", kindFlag, nil, nil, nil); err != nil || last.devNum != 0 {
		t.Errorf("Flag keyword failed: %v %03o", err, last.devNum)
	}
}

// Which lines are accepted for each kind.
func TestLineShapes(t *testing.T) {
	tests := []struct {
		text   string
		ok     bool
		kind   string
		devNum uint16
		value  string
	}{
		{"", true, "", 0xffff, "error"},
		{"   # only a comment", true, "", 0xffff, "error"},
		{"testSwitch", true, "switch", 0, ""},
		{"testSwitch  # Comment", true, "switch", 0, ""},
		{"testSwitch 0", false, "", 0xffff, "error"},
		{"testSwitch 0 name", false, "", 0xffff, "error"},
		{"TESTOPTION", false, "", 0xffff, "error"},
		{"testOption enable  # Comment", true, "option", D.NoDev, "enable"},
		{"testOption 0100    ", true, "option", 0o100, "0100"},
		{"testOption 0100 extra", false, "", 0xffff, "error"},
		{"TESTdevice", false, "", 0xffff, "error"},
		{"testDevice enable  # Comment", false, "", 0xffff, "error"},
		{"testDevice 0100    ", true, "model", 0o100, ""},
		{"testList 256K fast", true, "list", D.NoDev, "256K"},
		{"testList", false, "", 0xffff, "error"},
		{"testFile", false, "", 0xffff, "error"},
		{"testFile /tmp/disk.img  # image", true, "file", D.NoDev, "/tmp/disk.img"},
		{`testFile "my disk.img"`, true, "file", D.NoDev, "my disk.img"},
		{`testFile "my disk.img`, false, "", 0xffff, "error"},
		{"testFile one two", false, "", 0xffff, "error"},
		{"bogus 100", false, "", 0xffff, "error"},
	}
	for _, test := range tests {
		setupKeywords()
		err := parse(test.text)
		if (err == nil) != test.ok {
			t.Errorf("Line '%s' error got: %v expected ok: %v", test.text, err, test.ok)
			continue
		}
		if last.kind != test.kind || last.devNum != test.devNum || last.value != test.value {
			t.Errorf("Line '%s' got: %s %03o '%s' expected: %s %03o '%s'", test.text,
				last.kind, last.devNum, last.value, test.kind, test.devNum, test.value)
		}
	}
}

// Expected option, extras joined by commas.
type wantOption struct {
	name   string
	equal  string
	extras string
}

func checkOptions(t *testing.T, text string, got []Option, want []wantOption) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("Line '%s' options got: %d expected: %d", text, len(got), len(want))
		return
	}
	for i, w := range want {
		extras := []string{}
		for _, v := range got[i].Value {
			extras = append(extras, *v)
		}
		if got[i].Name != w.name || got[i].EqualOpt != w.equal || strings.Join(extras, ",") != w.extras {
			t.Errorf("Line '%s' option %d got: %s='%s' [%s] expected: %s='%s' [%s]", text, i,
				got[i].Name, got[i].EqualOpt, strings.Join(extras, ","), w.name, w.equal, w.extras)
		}
	}
}

// Options following a device number.
func TestDeviceOptions(t *testing.T) {
	tests := []struct {
		text string
		want []wantOption
	}{
		{"testDevice 0100    ", nil},
		{"testDevice 0100   single ", []wantOption{{"single", "", ""}}},
		{"testDevice 0100   single second  ", []wantOption{{"single", "", ""}, {"second", "", ""}}},
		{"testDevice 0100   single, second", []wantOption{{"single", "", "second"}}},
		{"testDevice 0104   test, second, third # comment", []wantOption{{"test", "", "second,third"}}},
		{"testDevice 0100   equal=value   ", []wantOption{{"equal", "value", ""}}},
		{"testDevice 0100   param=opt second   ", []wantOption{{"param", "opt", ""}, {"second", "", ""}}},
		{"testDevice 0100   single=second, third # comment", []wantOption{{"single", "second", "third"}}},
		{"testDevice 0100   path=/a/b=c.img", []wantOption{{"path", "/a/b=c.img", ""}}},
		{"testDevice 0100   empty=", []wantOption{{"empty", "", ""}}},
		{`testDevice 0100   equal="value"   `, []wantOption{{"equal", "value", ""}}},
		{`testDevice 0100   param="Value Second"  `, []wantOption{{"param", "Value Second", ""}}},
		{`testDevice 0100   say="a ""quoted"" word"`, []wantOption{{"say", `a "quoted" word`, ""}}},
		{`testDevice 0100   paramx="option,third fourth" ,comma  `, []wantOption{{"paramx", "option,third fourth", "comma"}}},
		{`testDevice 0100   equal="value"  second=another option`,
			[]wantOption{{"equal", "value", ""}, {"second", "another", ""}, {"option", "", ""}}},
		{`testDevice 0100   equal="value",extra  second=another option,extra`,
			[]wantOption{{"equal", "value", "extra"}, {"second", "another", ""}, {"option", "", "extra"}}},
	}
	for _, test := range tests {
		setupKeywords()
		if err := parse(test.text); err != nil {
			t.Errorf("Line '%s' failed: %v", test.text, err)
			continue
		}
		if last.kind != "model" {
			t.Errorf("Line '%s' did not create a device", test.text)
		}
		checkOptions(t, test.text, last.options, test.want)
	}
}

// Malformed options are rejected.
func TestBadOptions(t *testing.T) {
	for _, text := range []string{
		"testDevice 0100 9lives",
		"testDevice 0100 name, 2nd",
		`testDevice 0100 name="open`,
		"testDevice 0100 name.x",
	} {
		setupKeywords()
		if err := parse(text); err == nil {
			t.Errorf("Line '%s' accepted", text)
		}
	}
}

// Device numbers are octal and below 1000.
func TestTargetOctal(t *testing.T) {
	tests := []struct {
		text   string
		hasDev bool
		devNum uint16
	}{
		{"250", true, 0o250},
		{"0", true, 0},
		{"777", true, 0o777},
		{"189", false, D.NoDev},
		{"1000", false, D.NoDev},
		{"CTY", false, D.NoDev},
	}
	for _, test := range tests {
		sc := scanner{text: test.text}
		tg := sc.target()
		if tg == nil || tg.hasDev != test.hasDev || tg.device() != test.devNum || tg.text != test.text {
			t.Errorf("Target '%s' got: %v expected: %v %03o", test.text, tg, test.hasDev, test.devNum)
		}
	}
	sc := scanner{text: "   # nothing"}
	if sc.target() != nil {
		t.Errorf("Target found in comment")
	}
}

// Load a full configuration, system is handed to each creator.
func TestLoadConfig(t *testing.T) {
	handlers = map[string]handler{}
	RegisterOption("memory", recorder("option"))
	RegisterModel("disk", recorder("model"))
	RegisterSwitch("trace", recorder("switch"))

	sys := &D.System{}
	config := "# Test system\n\nmemory 256K\ntrace\ndisk 250 file=disk.img\n"
	if err := LoadConfig(strings.NewReader(config), sys); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if last.kind != "model" || last.devNum != 0o250 {
		t.Errorf("Last line not a device: %s %03o", last.kind, last.devNum)
	}
	if last.sys != sys {
		t.Errorf("System not passed to device")
	}
	checkOptions(t, "disk", last.options, []wantOption{{"file", "disk.img", ""}})

	// Last line without a newline.
	if err := LoadConfig(strings.NewReader("disk 124"), sys); err != nil || last.devNum != 0o124 {
		t.Errorf("Unterminated last line got: %v %03o", err, last.devNum)
	}

	err := LoadConfig(strings.NewReader("memory 256K\nbogus 100\n"), sys)
	if err == nil {
		t.Fatalf("LoadConfig accepted unknown option")
	}
	if !strings.Contains(err.Error(), "line: 2") {
		t.Errorf("Error does not give line number: %v", err)
	}

	if err := LoadConfigFile("/nonexistent/KI10.cfg", sys); err == nil {
		t.Errorf("Missing file not reported")
	}
}
