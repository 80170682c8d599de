package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inamate/psdedit/internal/bundle"
	"github.com/inamate/psdedit/internal/composite"
	"github.com/inamate/psdedit/internal/document"
	"github.com/inamate/psdedit/internal/engine"
	"github.com/inamate/psdedit/internal/export"
)

func main() {
	// CLI flags
	in := flag.String("in", "", "Path to bundle JSON (default: built-in sample document)")
	out := flag.String("out", "composite.png", "Output image path")
	formatName := flag.String("format", "", "png, jpeg or webp (default: from -out extension)")
	sampling := flag.String("sampling", "nearest", "Resampling filter: nearest or bilinear")
	quality := flag.Int("quality", 0, "JPEG quality 1-100 (default: 90)")
	hide := flag.String("hide", "", "Comma-separated layer ids to hide before rendering")
	dumpBundle := flag.String("dump-bundle", "", "Also write the loaded document as a bundle to this path")

	flag.Parse()

	name := *formatName
	if name == "" {
		name = filepath.Ext(*out)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	eng := engine.NewEngine()
	eng.SetSampling(composite.ParseSampling(*sampling))

	if *in == "" {
		eng.LoadSampleDocument()
	} else {
		data, err := os.ReadFile(*in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading bundle: %v\n", err)
			os.Exit(1)
		}
		if err := eng.LoadBundle(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading bundle: %v\n", err)
			os.Exit(1)
		}
	}

	for _, id := range strings.Split(*hide, ",") {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		if err := eng.SetVisibility(id, false); err != nil {
			fmt.Fprintf(os.Stderr, "Error hiding %s: %v\n", id, err)
			os.Exit(1)
		}
	}

	if *dumpBundle != "" {
		data, err := bundle.Encode(eng.Document())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding bundle: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*dumpBundle, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing bundle: %v\n", err)
			os.Exit(1)
		}
	}

	start := time.Now()
	img := eng.Render()

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output: %v\n", err)
		os.Exit(1)
	}
	if err := export.Encode(f, img, format, *quality); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "Error encoding %s: %v\n", format, err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}

	doc := eng.Document()
	fmt.Printf("Rendered %q (%dx%d, %d layers) to %s in %v\n",
		doc.Name, doc.Width, doc.Height, document.Count(doc.Layers), *out, time.Since(start).Round(time.Millisecond))
}
