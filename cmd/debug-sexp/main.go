// debug-sexp probes a .kicad_pcb file with the generic chewxy/sexp
// parser. Useful when the board parser rejects a file: it shows
// whether the raw s-expression layer is at fault or the board schema.
package main

import (
	"fmt"
	"os"

	"github.com/chewxy/sexp"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: debug-sexp <board_file>")
		os.Exit(1)
	}

	filename := os.Args[1]
	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	info, _ := file.Stat()
	fmt.Printf("File size: %d bytes (%.2f MB)\n", info.Size(), float64(info.Size())/1024/1024)

	sexps, err := sexp.Parse(file)
	if err != nil {
		fmt.Printf("parse error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Parsed %d top-level s-expressions\n", len(sexps))
	if len(sexps) == 0 {
		return
	}

	root := sexps[0]
	fmt.Printf("Root is leaf: %v\n", root.IsLeaf())
	if !root.IsLeaf() {
		fmt.Printf("Leaf count: %d\n", root.LeafCount())
	}
}
