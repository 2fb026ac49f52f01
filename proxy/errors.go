// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proxy

import (
	"fmt"

	"github.com/pkg/errors"
)

// newError wraps fmt.Sprintf-style formatting with a stack trace, mirroring
// connstream.newError from the teacher repo.
func newError(format string, args ...any) error {
	return errors.WithStack(fmt.Errorf(format, args...))
}

// runResult is the precedence-ordered outcome of running both pipelines:
// outbound error first, then inbound, then setup error, matching §7's
// error propagation rule.
type runResult struct {
	outboundErr error
	inboundErr  error
	setupErr    error
}

// primary returns the single error Run should report, honoring precedence.
func (r runResult) primary() error {
	switch {
	case r.outboundErr != nil:
		return r.outboundErr
	case r.inboundErr != nil:
		return r.inboundErr
	default:
		return r.setupErr
	}
}
