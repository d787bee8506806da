/*
 * KI10 - System configuration options.
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

package sysconfig

import (
	"errors"
	"strconv"
	"strings"

	config "github.com/rcornwell/KI10/config/configparser"
	dev "github.com/rcornwell/KI10/emu/device"
	"github.com/rcornwell/KI10/emu/word"
)

/*
   MEMORY <size>      Size in words, K or M suffix for 1024 or 1024*1024.
   BOOT <address>     Octal start address, processor starts once loaded.
   SWITCHES <value>   Octal console data switches.
*/

func init() {
	config.RegisterOption("MEMORY", setMemory)
	config.RegisterOption("BOOT", setBoot)
	config.RegisterOption("SWITCHES", setSwitches)
}

// Set memory size.
func setMemory(_ uint16, value string, _ []config.Option, sys *dev.System) error {
	value = strings.ToUpper(value)
	mult := uint64(1)
	switch {
	case strings.HasSuffix(value, "K"):
		mult = 1024
		value = strings.TrimSuffix(value, "K")
	case strings.HasSuffix(value, "M"):
		mult = 1024 * 1024
		value = strings.TrimSuffix(value, "M")
	}
	size, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return errors.New("memory size invalid: " + value)
	}
	size *= mult
	if size == 0 || size > 4*1024*1024 || size%1024 != 0 {
		return errors.New("memory size must be multiple of 1K up to 4M")
	}
	sys.Mem.SetSize(int(size / 1024))
	return nil
}

// Set boot address.
func setBoot(_ uint16, value string, _ []config.Option, sys *dev.System) error {
	addr, err := strconv.ParseUint(value, 8, 18)
	if err != nil {
		return errors.New("boot address invalid: " + value)
	}
	sys.Boot = addr
	sys.AutoBoot = true
	return nil
}

// Set console switches.
func setSwitches(_ uint16, value string, _ []config.Option, sys *dev.System) error {
	sw, err := strconv.ParseUint(value, 8, 36)
	if err != nil {
		return errors.New("switches invalid: " + value)
	}
	sys.Switches = sw & word.Mask
	return nil
}
