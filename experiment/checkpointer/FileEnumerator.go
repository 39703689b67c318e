package checkpointer

import "fmt"

// fileEnumerator enumerates filenames
type fileEnumerator struct {
	i         int
	name      string
	extension string
}

// filename returns the name of the next consecutive enumerated file
func (f *fileEnumerator) filename() string {
	f.i++
	return fmt.Sprintf("%v_%v%v", f.name, f.i, f.extension)
}

// FilenameEnumerator returns a function which will return filenames
// with a counter integer suffix, of the form name_1.bin, name_2.bin,
// and so on. Each time the returned function is called, the counter
// suffix will be one higher than on the previous call, starting one
// above start. The name parameter is the full filename with its path,
// while the extension parameter determines the file extension.
func FilenameEnumerator(start int, name, extension string) func() string {
	enum := fileEnumerator{i: start, name: name, extension: extension}

	return enum.filename
}
