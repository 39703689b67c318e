package checkpointer

import (
	"fmt"
	"time"
)

// FileTimer returns a function generating distinct filenames of the
// form filename-<nanosecond timestamp>.extension, where the timestamp
// is taken at each call. The extension should include its leading dot.
func FileTimer(filename, extension string) func() string {
	return func() string {
		return fmt.Sprintf("%v-%v%v", filename, time.Now().UnixNano(),
			extension)
	}
}
