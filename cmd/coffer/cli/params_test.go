// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Name     string   `flag:"name" desc:"the name"`
		Verbose  bool     `flag:"verbose,v" desc:"enable verbose output"`
		Count    int      `flag:"count" desc:"number of items"`
		Offset   int64    `flag:"offset" desc:"byte offset"`
		Paths    []string `flag:"paths" desc:"path list"`
		Untagged string   // no flag tag, skipped
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	err := flagSet.Parse([]string{
		"--name", "alice",
		"-v",
		"--count", "42",
		"--offset", "1099511627776",
		"--paths", "a,b,c",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Name != "alice" {
		t.Errorf("Name = %q, want %q", p.Name, "alice")
	}
	if !p.Verbose {
		t.Error("Verbose = false, want true")
	}
	if p.Count != 42 {
		t.Errorf("Count = %d, want 42", p.Count)
	}
	if p.Offset != 1099511627776 {
		t.Errorf("Offset = %d, want 1099511627776", p.Offset)
	}
	if len(p.Paths) != 3 || p.Paths[0] != "a" || p.Paths[2] != "c" {
		t.Errorf("Paths = %v, want [a b c]", p.Paths)
	}
	if flagSet.Lookup("untagged") != nil {
		t.Error("untagged field was bound")
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Host    string   `flag:"host" default:"localhost"`
		Threads int      `flag:"threads" default:"8"`
		Limit   int64    `flag:"limit" default:"100"`
		Chown   bool     `flag:"chown" default:"true"`
		Tags    []string `flag:"tags" default:"x,y"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Host != "localhost" || p.Threads != 8 || p.Limit != 100 || !p.Chown {
		t.Errorf("defaults = %+v", p)
	}
	if len(p.Tags) != 2 || p.Tags[1] != "y" {
		t.Errorf("Tags = %v, want [x y]", p.Tags)
	}
}

type sharedParams struct {
	ConfigPath string `flag:"config" desc:"config file"`
}

type binderParams struct {
	value string
}

func (b *binderParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&b.value, "custom", "", "bound by hand")
}

func TestBindFlags_Composition(t *testing.T) {
	type params struct {
		sharedParams
		Binder binderParams
		Name   string `flag:"name"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse([]string{"--config", "/c.yaml", "--custom", "v", "--name", "n"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.ConfigPath != "/c.yaml" || p.Binder.value != "v" || p.Name != "n" {
		t.Errorf("params = %+v", p)
	}
}

func TestBindFlags_Errors(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var notStruct string
	if err := BindFlags(&notStruct, flagSet); err == nil {
		t.Error("BindFlags(*string) = nil, want error")
	}

	type unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	err := BindFlags(&unsupported{}, flagSet)
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Errorf("BindFlags(float32) = %v, want unsupported type error", err)
	}

	type badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault{}, flagSet); err == nil {
		t.Error("BindFlags with bad default = nil, want error")
	}
}
