// Copyright (c) 2025 The exhume authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
// Package sysinfo identifies the running operating system for scan
// report headers. Identification is best effort: on Linux the os-release
// database is consulted, elsewhere the platform name alone is reported.
package sysinfo

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"
)

// SysUnknown stands in when nothing beyond the platform name is known.
var SysUnknown = SysInfo{
	Name:    runtime.GOOS,
	Release: "unknown",
	Version: "unknown",
}

// SysInfo holds basic operating system identification.
type SysInfo struct {
	Name    string
	Release string
	Version string
}

// Stat identifies the running operating system.
func Stat() (*SysInfo, error) {
	info := SysUnknown

	if runtime.GOOS == "linux" {
		f, err := os.Open("/etc/os-release")
		if err == nil {
			defer f.Close()

			fields := parseOSRelease(f)
			if v := fields["NAME"]; v != "" {
				info.Release = v
			}
			if v := fields["VERSION"]; v != "" {
				info.Version = v
			}
		}
	}
	return &info, nil
}

// parseOSRelease reads the KEY=value lines of an os-release file into a
// map, stripping surrounding quotes. Malformed lines are skipped.
func parseOSRelease(r io.Reader) map[string]string {
	fields := map[string]string{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"'`)
	}
	return fields
}
