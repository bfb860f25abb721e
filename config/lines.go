package config

import (
	"bufio"
	"io/fs"
	"iter"
)

const maxLine = 1 << 20

// Lines returns the lines of name in fsys without their terminators. Every
// range over the sequence reopens the file. A failure to open or read is
// yielded once as the final element.
func Lines(fsys fs.FS, name string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := fsys.Open(name)
		if err != nil {
			yield("", err)
			return
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 0, 4096), maxLine)
		for sc.Scan() {
			if !yield(sc.Text(), nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield("", err)
		}
	}
}
