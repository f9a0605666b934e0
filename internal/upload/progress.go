package upload

import "io"

// ProgressFunc receives upload progress as an integer percentage 0-100.
// Values are monotonically non-decreasing within one session.
type ProgressFunc func(percent int)

// sizeWriter counts bytes written to it, used to pre-measure the
// multipart payload so progress can be reported against an exact total
type sizeWriter struct {
	size int64
}

func (sw *sizeWriter) Write(p []byte) (int, error) {
	sw.size += int64(len(p))
	return len(p), nil
}

func (sw *sizeWriter) Size() int64 { return sw.size }

// progressReader wraps the outgoing payload stream and reports the
// percentage of total bytes handed to the transport. Percentages never
// regress: a repeat of the previous value is suppressed.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report ProgressFunc
}

func newProgressReader(r io.Reader, total int64, report ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, last: -1, report: report}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.emit()
	}
	return n, err
}

func (p *progressReader) emit() {
	if p.report == nil || p.total <= 0 {
		return
	}
	percent := int(p.read * 100 / p.total)
	if percent > 100 {
		percent = 100
	}
	if percent > p.last {
		p.last = percent
		p.report(percent)
	}
}
