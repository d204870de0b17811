package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/droidsec/axml"
)

func main() {
	isApk := flag.Bool("a", false, "The input file is an apk")
	summary := flag.Bool("s", false, "Print a manifest summary instead of XML")

	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Printf("%s [-a] [-s] INPUT\n", os.Args[0])
		os.Exit(1)
	}

	input := flag.Args()[0]
	if strings.HasSuffix(input, ".apk") {
		*isApk = true
	}

	var root *axml.Element
	var err error

	switch {
	case input == "-":
		root, err = axml.DecodeReader(os.Stdin)
	case *isApk:
		root, err = axml.ParseApk(input)
	default:
		var f *os.File
		if f, err = os.Open(input); err == nil {
			root, err = axml.DecodeReader(f)
			f.Close()
		}
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *summary {
		printSummary(os.Stdout, root)
		return
	}

	if err := root.WriteXML(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println()
}

func printSummary(w io.Writer, root *axml.Element) {
	m := axml.Summarize(root)

	fmt.Fprintf(w, "package: %s\n", m.Package)
	if m.MainActivity != "" {
		fmt.Fprintf(w, "main activity: %s\n", m.MainActivity)
	}

	printList(w, "activities", m.Activities)
	printList(w, "services", m.Services)
	printList(w, "providers", m.Providers)
	printList(w, "receivers", m.Receivers)
	printList(w, "defined permissions", m.DefinedPermissions)
	printList(w, "requested permissions", m.RequestedPermissions)

	exposed := axml.ExposedComponents(root)
	if exposed == nil {
		fmt.Fprintln(w, "application is disabled")
		return
	}

	for _, elementType := range []string{"activity", "service", "provider", "receiver"} {
		for _, e := range exposed[elementType] {
			fmt.Fprintf(w, "exposed %s: %s\n", elementType, e.Attributes["android:name"])
		}
	}
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}

	fmt.Fprintf(w, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(w, "    %s\n", item)
	}
}
