/*
 * KI10 - Debug configuration options.
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

package debugconfig

import (
	"errors"
	"strings"

	config "github.com/rcornwell/KI10/config/configparser"
	dev "github.com/rcornwell/KI10/emu/device"
)

/*
   DEBUG <device> <option>[,<option>...]

   The device is a device number in octal, a device name or CPU.
*/

// register option on initialize.
func init() {
	config.RegisterOptions("DEBUG", setDebug)
}

// Set debug options on device.
func setDebug(devNum uint16, name string, options []config.Option, sys *dev.System) error {
	var target dev.Device
	if devNum != dev.NoDev {
		target = sys.Bus.Get(devNum)
	} else {
		name = strings.ToUpper(name)
		if name == "CPU" {
			name = "APR"
		}
		_, target = sys.Bus.Find(name)
	}
	if target == nil {
		return errors.New("debug device not found: " + name)
	}
	debugger, ok := target.(dev.Debugger)
	if !ok {
		return errors.New("device has no debug options: " + name)
	}
	if len(options) == 0 {
		return errors.New("debug requires options")
	}

	for _, opt := range options {
		if err := debugger.Debug(strings.ToUpper(opt.Name)); err != nil {
			return err
		}
		for _, value := range opt.Value {
			if err := debugger.Debug(strings.ToUpper(*value)); err != nil {
				return err
			}
		}
	}
	return nil
}
