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
package dfxml

import (
	"encoding/xml"
	"fmt"
	"io"
)

// report mirrors the document layout for decoding; only the fileobject
// list is consumed back. Reports are bounded by the entry count of a
// scan, so whole-document decoding is fine.
type report struct {
	XMLName     xml.Name     `xml:"dfxml"`
	FileObjects []FileObject `xml:"fileobject"`
}

// ReadFileObjects parses a scan report and returns its fileobjects,
// inode and allocation state included.
func ReadFileObjects(r io.Reader) ([]FileObject, error) {
	var doc report
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed scan report: %w", err)
	}
	return doc.FileObjects, nil
}
