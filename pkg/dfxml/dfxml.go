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
// Package dfxml reads and writes Digital Forensics XML scan reports: one
// fileobject per recovered MFT record, carrying its allocation state and
// the byte runs its content occupies on the imaged volume.
package dfxml

import (
	"encoding/xml"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"time"

	"github.com/exhume/exhume/pkg/sysinfo"
)

const XmlOutputVersion = "1.0"

var DefaultMetadata = Metadata{
	Xmlns:    "http://www.forensicswiki.org/wiki/Category:Digital_Forensics_XML",
	XmlnsXsi: "http://www.w3.org/2001/XMLSchema-instance",
	XmlnsDC:  "http://purl.org/dc/elements/1.1/",
	Type:     "MFT Scan Report",
}

// DFXMLHeader opens a report: schema metadata, the producing tool and the
// imaged source.
type DFXMLHeader struct {
	XMLName   xml.Name `xml:"dfxml"`
	XmlOutput string   `xml:"xmloutputversion,attr,omitempty"`
	Metadata  Metadata `xml:"metadata"`
	Creator   Creator  `xml:"creator"`
	Source    Source   `xml:"source"`
}

type Metadata struct {
	Xmlns    string `xml:"xmlns,attr"`
	XmlnsXsi string `xml:"xmlns:xsi,attr"`
	XmlnsDC  string `xml:"xmlns:dc,attr"`
	Type     string `xml:"dc:type"`
}

type Creator struct {
	Package              string  `xml:"package"`
	Version              string  `xml:"version"`
	ExecutionEnvironment ExecEnv `xml:"execution_environment"`
}

type ExecEnv struct {
	OS      string `xml:"os_sysname"`
	Release string `xml:"os_release"`
	Version string `xml:"os_version"`
	Host    string `xml:"host"`
	Arch    string `xml:"arch"`
	UID     int    `xml:"uid"`
	Start   string `xml:"start_time"`
}

type Source struct {
	ImageFilename string `xml:"image_filename"`
	SectorSize    int    `xml:"sectorsize"`
	ImageSize     uint64 `xml:"image_size"`
}

// FileObject describes one recovered file. Inode is the MFT record
// number; Alloc distinguishes live entries from deleted ones.
type FileObject struct {
	XMLName  xml.Name `xml:"fileobject"`
	Filename string   `xml:"filename"`
	FileSize uint64   `xml:"filesize"`
	Inode    uint64   `xml:"inode"`
	Alloc    int      `xml:"alloc"`
	ByteRuns ByteRuns `xml:"byte_runs"`
}

type ByteRuns struct {
	Runs []ByteRun `xml:"byte_run"`
}

// ByteRun is one extent of a file's content. Offset is the position
// inside the file, ImgOffset the position on the imaged volume. A run
// with Fill set has no image backing and reads as that fill byte
// (sparse extents use fill="0").
type ByteRun struct {
	Offset    uint64 `xml:"offset,attr"`
	ImgOffset uint64 `xml:"img_offset,attr"`
	Length    uint64 `xml:"len,attr"`
	Fill      string `xml:"fill,attr,omitempty"`
}

// Sparse reports whether the run is a hole.
func (r *ByteRun) Sparse() bool {
	return r.Fill != ""
}

// GetExecEnv collects the execution environment block of the report
// header from the running system.
func GetExecEnv() ExecEnv {
	sinfo, err := sysinfo.Stat()
	if err != nil {
		sinfo = &sysinfo.SysUnknown
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown_host"
	}

	uid := 0
	if currentUser, err := user.Current(); err == nil {
		if uidInt, parseErr := strconv.Atoi(currentUser.Uid); parseErr == nil {
			uid = uidInt
		}
	}

	return ExecEnv{
		OS:      sinfo.Name,
		Release: sinfo.Release,
		Version: sinfo.Version,
		Host:    host,
		Arch:    runtime.GOARCH,
		UID:     uid,
		Start:   time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
}
