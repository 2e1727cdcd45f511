// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"fmt"
	"strings"
)

// ParseFlags parses args and checks that there are no positional arguments
// where the tool does not expect them (set.Usage mentions them if it does).
func ParseFlags(set *flag.FlagSet, args []string) error {
	if err := set.Parse(args); err != nil {
		return err
	}
	for _, arg := range set.Args() {
		if strings.HasPrefix(arg, "-") {
			return fmt.Errorf("flag %q after positional arguments", arg)
		}
	}
	return nil
}

// ListFlag is a flag holding a comma-separated list, e.g. "-cases mmap-*,kevent".
// Repeated flags are appended.
type ListFlag []string

func (list *ListFlag) String() string {
	return strings.Join(*list, ",")
}

func (list *ListFlag) Set(value string) error {
	for _, elem := range strings.Split(value, ",") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			return fmt.Errorf("empty element in list %q", value)
		}
		*list = append(*list, elem)
	}
	return nil
}
