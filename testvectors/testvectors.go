// Package testvectors reads the EUSPA OSNMA test-vector CSV format: a
// header row followed by one row per satellite, each holding a hex-encoded
// I/NAV navigation-bit stream. It implements osnma.SubframeSource so a
// vector file can drive the engine directly.
package testvectors

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"osnma/bitfield"
	"osnma/gst"
	"osnma/osnma"
)

// gstStartEpoch is the origin of Galileo System Time, 1999-08-22T00:00:00 UTC.
var gstStartEpoch = time.Date(1999, time.August, 22, 0, 0, 0, 0, time.UTC)

// dateToGST converts a test-vector filename's embedded timestamp into the
// GST of the first subframe in the file. The -1 second adjustment mirrors
// original_source/datasource/testvectors.py: the filename names the instant
// one second after the first subframe's start.
func dateToGST(t time.Time) (gst.GST, error) {
	delta := t.Sub(gstStartEpoch)
	totalSeconds := int64(delta/time.Second) - 1
	wn := int(totalSeconds / gst.SecondsInWeek)
	tow := int(totalSeconds % gst.SecondsInWeek)
	g, err := gst.New(wn, tow)
	if err != nil {
		return gst.GST{}, fmt.Errorf("testvectors: filename timestamp out of range: %w", err)
	}
	return g, nil
}

// filenamePattern matches EUSPA test-vector filenames, e.g.
// "20_Feb_2022_GST_08_00_01.csv".
var filenamePattern = regexp.MustCompile(`(\d{2})_(\w{3})_(\d{4})_GST_(\d{2})_(\d{2})_(\d{2})\.csv$`)

func gstFromFilename(name string) (gst.GST, error) {
	m := filenamePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return gst.GST{}, fmt.Errorf("testvectors: filename %q does not match the EUSPA DD_Mon_YYYY_GST_HH_MM_SS.csv pattern", name)
	}
	datestr := fmt.Sprintf("%s %s %s %s %s %s", m[3], m[2], m[1], m[4], m[5], m[6])
	t, err := time.Parse("2006 Jan 02 15 04 05", datestr)
	if err != nil {
		return gst.GST{}, fmt.Errorf("testvectors: parsing filename timestamp %q: %w", datestr, err)
	}
	return dateToGST(t)
}

const (
	pageHexChars     = 60  // one 240-bit page as hex
	subframeHexChars = pageHexChars * 15
)

// Reader implements osnma.SubframeSource over an EUSPA CSV test-vector
// file: it yields one Subframe per satellite per round, advancing GST by 30
// seconds once every satellite has been read in a round.
type Reader struct {
	gstStart    gst.GST
	current     gst.GST
	svids       []int
	navBits     map[int]string
	streamChars int

	satIndex int
	offset   int
}

// Open parses the CSV at path and prepares a Reader positioned at the
// file's first subframe. It does not hold the file open past this call.
func Open(path string) (*Reader, error) {
	g, err := gstFromFilename(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("testvectors: %w", err)
	}
	defer f.Close()

	r := &Reader{
		gstStart: g,
		current:  g,
		navBits:  make(map[int]string),
	}

	cr := csv.NewReader(bufio.NewReader(f))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("testvectors: reading %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("testvectors: %s has no data rows", path)
	}
	for _, row := range rows[1:] { // skip header
		if len(row) < 3 {
			continue
		}
		svid, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("testvectors: %s: invalid svid %q: %w", path, row[0], err)
		}
		r.svids = append(r.svids, svid)
		r.navBits[svid] = row[2]
	}
	if len(r.svids) == 0 {
		return nil, fmt.Errorf("testvectors: %s has no satellite rows", path)
	}
	r.streamChars = len(r.navBits[r.svids[0]])
	for _, svid := range r.svids[1:] {
		if n := len(r.navBits[svid]); n < r.streamChars {
			r.streamChars = n
		}
	}

	return r, nil
}

// Next returns the next Subframe in round-robin order across the file's
// satellites, advancing the GST by 30 seconds once per completed round. It
// returns io.EOF once the shortest nav-bit stream is exhausted.
func (r *Reader) Next() (osnma.Subframe, error) {
	svid := r.svids[r.satIndex]

	data, err := r.subframeBits(svid)
	if err != nil {
		return osnma.Subframe{}, err
	}

	wn, tow := r.current.WN, r.current.TOW

	r.satIndex++
	if r.satIndex >= len(r.svids) {
		r.satIndex = 0
		r.current = r.current.AddSeconds(gst.SubframeSeconds)
		r.offset += subframeHexChars
	}

	var pagesReceived [15]bool
	for i := range pagesReceived {
		pagesReceived[i] = true
	}
	return osnma.NewSubframe(wn, tow, svid, data, pagesReceived)
}

// subframeBits assembles one satellite's next 15 pages (234 bits each:
// a 114-bit even half plus a 120-bit odd half, the 6-bit padding between
// them discarded) into a 3510-bit subframe field.
func (r *Reader) subframeBits(svid int) (bitfield.Field, error) {
	stream := r.navBits[svid]
	out := bitfield.Zeros(0)
	for i := 0; i < 15; i++ {
		start := r.offset + i*pageHexChars
		end := start + pageHexChars
		if end > r.streamChars {
			return bitfield.Field{}, io.EOF
		}
		page, err := bitfield.FromHex(stream[start:end])
		if err != nil {
			return bitfield.Field{}, fmt.Errorf("testvectors: svid %d: %w", svid, err)
		}
		even := page.Slice(0, 114)
		odd := page.Slice(120, 240)
		out = out.Concat(even).Concat(odd)
	}
	return out, nil
}

var _ osnma.SubframeSource = (*Reader)(nil)
