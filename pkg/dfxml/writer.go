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
	"io"
)

// DFXMLWriter streams a report document to an io.Writer.
type DFXMLWriter struct {
	w   io.Writer
	enc *xml.Encoder
}

func NewDFXMLWriter(w io.Writer) *DFXMLWriter {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	return &DFXMLWriter{
		w:   w,
		enc: enc,
	}
}

// WriteHeader emits the XML declaration, opens the root <dfxml> element and
// writes the header blocks inside it. The blocks are encoded through
// DFXMLHeader, so they sit in a nested <dfxml> element of their own.
func (w *DFXMLWriter) WriteHeader(hdr DFXMLHeader) error {
	_, _ = w.w.Write([]byte(xml.Header))

	// The xmloutputversion attribute belongs on the root tag, so the tag
	// is opened by hand.
	start := xml.StartElement{
		Name: xml.Name{Local: "dfxml"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmloutputversion"}, Value: hdr.XmlOutput},
		},
	}
	if err := w.enc.EncodeToken(start); err != nil {
		return err
	}

	// Blank the attribute so the nested element written by the struct
	// encode below does not carry it a second time.
	hdr.XmlOutput = ""
	return w.enc.Encode(hdr)
}

// WriteFileObject appends one fileobject element.
func (w *DFXMLWriter) WriteFileObject(obj FileObject) error {
	return w.enc.Encode(obj)
}

// Close terminates the document and flushes the encoder.
func (w *DFXMLWriter) Close() error {
	if err := w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "dfxml"}}); err != nil {
		return err
	}
	return w.enc.Flush()
}
