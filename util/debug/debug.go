/*
 * KI10 - Debug trace output.
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

package debug

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	config "github.com/rcornwell/KI10/config/configparser"
	"github.com/rcornwell/KI10/emu/device"
)

var (
	lock sync.Mutex
	out  io.Writer // Trace destination, nil discards.
	name string    // Name of trace file.
)

// Direct trace output to writer.
func SetOutput(w io.Writer) {
	lock.Lock()
	out = w
	lock.Unlock()
}

func write(prefix string, format string, a ...interface{}) {
	lock.Lock()
	defer lock.Unlock()
	if out != nil {
		fmt.Fprintf(out, prefix+": "+format+"\n", a...)
	}
}

// Generic debug message.
func Debugf(module string, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		write(module, format, a...)
	}
}

// Device debug message, device number is shown in octal.
func DebugDevf(devNum uint16, mask int, level int, format string, a ...interface{}) {
	if (mask & level) != 0 {
		write(strconv.FormatUint(uint64(devNum), 8), format, a...)
	}
}

// register a device on initialize.
func init() {
	config.RegisterFile("DEBUGFILE", create)
}

// Open trace file.
func create(_ uint16, fileName string, _ []config.Option, _ *device.System) error {
	if name != "" {
		return fmt.Errorf("can't have more then one debug file, previous: %s", name)
	}

	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create debug file: %s: %w", fileName, err)
	}

	name = fileName
	SetOutput(file)
	return nil
}
