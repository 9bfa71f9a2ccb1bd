// Copyright 2024 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Command classdump parses .class files and prints the structures a
// reader walks through as pretty-printed JSON, mirroring cmd/pedumper.go's
// dump/version subcommand shape.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/go-classfile/classfile"
	"github.com/go-classfile/classfile/classtree"
	"github.com/go-classfile/classfile/signature"
)

var (
	wantConstantPool bool
	wantMethods      bool
	wantFields       bool
	wantFrames       bool
	wantAll          bool
	verbose          bool
)

func prettyPrint(v any) string {
	buff, err := json.Marshal(v)
	if err != nil {
		log.Printf("JSON marshal error: %v", err)
		return ""
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buff, "", "\t"); err != nil {
		log.Printf("JSON indent error: %v", err)
		return string(buff)
	}
	return pretty.String()
}

// methodSummary is the dumper's own rendering of a method, separate from
// classtree.MethodNode's full instruction tree, pairing each field/method
// signature with its signature.Pretty rendering.
type methodSummary struct {
	Access          int    `json:"access"`
	Name            string `json:"name"`
	Descriptor      string `json:"descriptor"`
	Signature       string `json:"signature,omitempty"`
	PrettySignature string `json:"prettySignature,omitempty"`
	MaxStack        int    `json:"maxStack"`
	MaxLocals       int    `json:"maxLocals"`
	InsnCount       int    `json:"insnCount"`
}

type fieldSummary struct {
	Access          int    `json:"access"`
	Name            string `json:"name"`
	Descriptor      string `json:"descriptor"`
	Signature       string `json:"signature,omitempty"`
	PrettySignature string `json:"prettySignature,omitempty"`
	Value           any    `json:"value,omitempty"`
}

func dumpClass(filename string) {
	if verbose {
		log.Printf("processing %s", filename)
	}

	r, err := classfile.Open(filename, classfile.ReaderOptions{})
	if err != nil {
		log.Printf("error opening %s: %v", filename, err)
		return
	}
	defer r.Close()

	options := 0
	if !wantFrames && !wantAll {
		options |= classfile.SkipFrames
	}
	node, err := classtree.ReadClassNode(r, options)
	if err != nil {
		log.Printf("error parsing %s: %v", filename, err)
		return
	}

	fmt.Printf("class %s (version %d.%d)\n", node.Name, node.Version&0xFFFF, node.Version>>16)

	if wantConstantPool || wantAll {
		type header struct {
			Access     int      `json:"access"`
			Name       string   `json:"name"`
			Super      string   `json:"super"`
			Signature  string   `json:"signature,omitempty"`
			Interfaces []string `json:"interfaces,omitempty"`
		}
		fmt.Println(prettyPrint(header{node.Access, node.Name, node.SuperName, node.Signature, node.Interfaces}))
	}

	if wantFields || wantAll {
		summaries := make([]fieldSummary, 0, len(node.Fields))
		for _, f := range node.Fields {
			summaries = append(summaries, fieldSummary{
				Access: f.Access, Name: f.Name, Descriptor: f.Descriptor,
				Signature: f.Signature, PrettySignature: signature.Pretty(f.Signature), Value: f.Value,
			})
		}
		fmt.Println(prettyPrint(summaries))
	}

	if wantMethods || wantAll {
		summaries := make([]methodSummary, 0, len(node.Methods))
		for _, m := range node.Methods {
			summaries = append(summaries, methodSummary{
				Access: m.Access, Name: m.Name, Descriptor: m.Descriptor,
				Signature: m.Signature, PrettySignature: signature.Pretty(m.Signature),
				MaxStack: m.MaxStack, MaxLocals: m.MaxLocals, InsnCount: len(m.Instructions),
			})
		}
		fmt.Println(prettyPrint(summaries))
	}

	if wantFrames || wantAll {
		for _, m := range node.Methods {
			var frames []*classtree.FrameNode
			for _, insn := range m.Instructions {
				if f, ok := insn.(*classtree.FrameNode); ok {
					frames = append(frames, f)
				}
			}
			if len(frames) > 0 {
				fmt.Printf("frames for %s%s:\n", m.Name, m.Descriptor)
				fmt.Println(prettyPrint(frames))
			}
		}
	}
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

var (
	wg   sync.WaitGroup
	jobs = make(chan string)
)

// loopFilesWorker drains one directory's class files per job, the way
// cmd/dump.go's worker walks one directory's PE files per job.
func loopFilesWorker() {
	for dir := range jobs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Printf("error reading %s: %v", dir, err)
			wg.Done()
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".class" {
				dumpClass(filepath.Join(dir, entry.Name()))
			}
		}
		wg.Done()
	}
}

// walkDirs recursively enqueues every directory under root onto jobs.
func walkDirs(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	wg.Add(1)
	jobs <- root
	for _, entry := range entries {
		if entry.IsDir() {
			if err := walkDirs(filepath.Join(root, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func dump(cmd *cobra.Command, args []string) {
	path := args[0]
	if !isDirectory(path) {
		dumpClass(path)
		return
	}

	const workerCount = 4
	for i := 0; i < workerCount; i++ {
		go loopFilesWorker()
	}
	if err := walkDirs(path); err != nil {
		log.Printf("error walking %s: %v", path, err)
	}
	wg.Wait()
	close(jobs)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "classdump",
		Short: "A Java .class file parser",
		Long:  "A JVMS class file parser and dumper",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 0.0.1")
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Dumps the file",
		Long:  "Dumps interesting structures of a .class file, or every .class file under a directory",
		Args:  cobra.ExactArgs(1),
		Run:   dump,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	dumpCmd.Flags().BoolVar(&wantConstantPool, "constantpool", false, "dump the class header and constant-pool-derived fields")
	dumpCmd.Flags().BoolVar(&wantMethods, "methods", false, "dump method signatures and code summaries")
	dumpCmd.Flags().BoolVar(&wantFields, "fields", false, "dump field signatures and constant values")
	dumpCmd.Flags().BoolVar(&wantFrames, "frames", false, "dump StackMapTable frames")
	dumpCmd.Flags().BoolVar(&wantAll, "all", false, "dump everything")

	rootCmd.AddCommand(versionCmd, dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
