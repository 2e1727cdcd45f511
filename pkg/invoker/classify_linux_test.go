// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package invoker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/syzbound/syzbound/pkg/classify"
	"github.com/syzbound/syzbound/pkg/invoker"
	"github.com/syzbound/syzbound/pkg/registry"
)

func TestChildClasses(t *testing.T) {
	tests := []struct {
		id     string
		expect registry.Expect
		class  classify.Class
	}{
		{"mount-missing", registry.ExpectError, classify.SetupFailed},
		{"bad-setup", registry.ExpectError, classify.SetupFailed},
		{"close-bad-fd", registry.ExpectError, classify.ErrorReturned},
		{"kill-self", registry.ExpectError, classify.Crashed},
	}
	for _, test := range tests {
		t.Run(test.id, func(t *testing.T) {
			raw := invoker.RunChild(t, test.id, nil)
			assert.Equal(t, test.class, classify.Classify(raw, test.expect))
		})
	}
}
