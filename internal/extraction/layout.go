package extraction

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// widths without a /Widths array are estimated at half an em
const defaultGlyphWidth = 500.0

// textRun is one shown string with its start and end on the page baseline
type textRun struct {
	x, endX, y float64
	size       float64
	text       string
}

type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n in the PDF row-vector convention
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func translate(tx, ty float64) matrix {
	return matrix{1, 0, 0, 1, tx, ty}
}

// layoutLines rebuilds the reading order of a page from text positions. It
// returns nil when the content stream carries no usable positions.
func layoutLines(p pdf.Page) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines, err = nil, fmt.Errorf("malformed content stream: %v", r)
		}
	}()

	runs := collectRuns(p)
	if degenerate(runs) {
		return nil, nil
	}
	return groupRuns(runs), nil
}

func collectRuns(p pdf.Page) []textRun {
	var (
		runs     []textRun
		ctm      = identity
		ctmStack []matrix
		tm, tlm  = identity, identity
		leading  float64
		fontSize float64
		font     pdf.Font
		enc      pdf.TextEncoding
	)

	show := func(raw string, extra string) {
		if enc == nil {
			font = p.Font("")
			enc = font.Encoder()
		}
		width := 0.0
		for i := 0; i < len(raw); i++ {
			w := font.Width(int(raw[i]))
			if w <= 0 {
				w = defaultGlyphWidth
			}
			width += w
		}
		start := tm.mul(ctm)
		tm = translate(width/1000*fontSize, 0).mul(tm)
		end := tm.mul(ctm)

		text := enc.Decode(raw) + extra
		if strings.TrimSpace(text) == "" {
			return
		}
		runs = append(runs, textRun{
			x:    start[4],
			endX: end[4],
			y:    start[5],
			size: math.Abs(fontSize * start[3]),
			text: text,
		})
	}

	nextLine := func(tx, ty float64) {
		tlm = translate(tx, ty).mul(tlm)
		tm = tlm
	}

	interpret := func(strm pdf.Value) {
		pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
			n := stk.Len()
			args := make([]pdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}
			num := func(i int) float64 {
				if i < len(args) {
					return args[i].Float64()
				}
				return 0
			}

			switch op {
			case "q":
				ctmStack = append(ctmStack, ctm)
			case "Q":
				if len(ctmStack) > 0 {
					ctm = ctmStack[len(ctmStack)-1]
					ctmStack = ctmStack[:len(ctmStack)-1]
				}
			case "cm":
				if len(args) == 6 {
					ctm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}.mul(ctm)
				}
			case "BT":
				tm, tlm = identity, identity
			case "Tf":
				if len(args) == 2 {
					font = p.Font(args[0].Name())
					enc = font.Encoder()
					fontSize = num(1)
				}
			case "TL":
				leading = num(0)
			case "Td":
				nextLine(num(0), num(1))
			case "TD":
				leading = -num(1)
				nextLine(num(0), num(1))
			case "Tm":
				if len(args) == 6 {
					tlm = matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
					tm = tlm
				}
			case "T*":
				nextLine(0, -leading)
			case "Tj":
				if n == 1 {
					show(args[0].RawString(), "")
				}
			case "'":
				nextLine(0, -leading)
				if n == 1 {
					show(args[0].RawString(), "")
				}
			case "\"":
				nextLine(0, -leading)
				if n == 3 {
					show(args[2].RawString(), "")
				}
			case "TJ":
				if n == 1 {
					showArray(args[0], show, &tm, fontSize)
				}
			}
		})
	}

	contents := p.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			interpret(contents.Index(i))
		}
	} else {
		interpret(contents)
	}
	return runs
}

// showArray renders a TJ array as a single run. Large negative offsets are
// word gaps in most generators.
func showArray(arr pdf.Value, show func(raw, extra string), tm *matrix, fontSize float64) {
	var raw strings.Builder
	for i := 0; i < arr.Len(); i++ {
		v := arr.Index(i)
		if v.Kind() == pdf.String {
			raw.WriteString(v.RawString())
			continue
		}
		adjust := v.Float64()
		if adjust < -200 && raw.Len() > 0 {
			show(raw.String(), " ")
			raw.Reset()
		}
		*tm = translate(-adjust/1000*fontSize, 0).mul(*tm)
	}
	if raw.Len() > 0 {
		show(raw.String(), "")
	}
}

// degenerate reports whether runs have no position information at all
func degenerate(runs []textRun) bool {
	if len(runs) == 0 {
		return true
	}
	if len(runs) == 1 {
		return false
	}
	for _, r := range runs[1:] {
		if r.x != runs[0].x || r.y != runs[0].y {
			return false
		}
	}
	return true
}

// groupRuns sorts runs top to bottom, left to right, and joins runs that
// share a baseline into one line.
func groupRuns(runs []textRun) []string {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].y > runs[j].y
	})

	var rows [][]textRun
	for _, r := range runs {
		if n := len(rows); n > 0 {
			last := rows[n-1]
			tolerance := math.Max(1, 0.4*math.Max(r.size, last[0].size))
			if math.Abs(last[0].y-r.y) <= tolerance {
				rows[n-1] = append(last, r)
				continue
			}
		}
		rows = append(rows, []textRun{r})
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if line := joinRow(row); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func joinRow(row []textRun) string {
	sort.SliceStable(row, func(i, j int) bool {
		return row[i].x < row[j].x
	})

	var b strings.Builder
	for i, r := range row {
		if i > 0 {
			prev := row[i-1]
			gap := r.x - prev.endX
			adjacent := gap < 0.15*math.Max(r.size, 1)
			if !adjacent && !strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(r.text, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(r.text)
	}
	return strings.TrimRight(b.String(), " \t")
}
