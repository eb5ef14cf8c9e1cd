// This file is part of TSVM.
//
// TSVM is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// TSVM is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with TSVM.  If not, see <https://www.gnu.org/licenses/>.
package session

import (
	"errors"
	"fmt"

	"github.com/curioustorvald/tsvm/hardware/peripherals"
)

// Sentinel errors.
var (
	ErrAttach   = errors.New("attach error")
	ErrTornDown = errors.New("session has been torn down")
)

// AttachError is returned by Create() when an entry cannot be constructed or
// attached. It wraps both ErrAttach and the cause.
type AttachError struct {
	Entry peripherals.Entry
	Err   error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("session: %v: %s: %v", ErrAttach, e.Entry, e.Err)
}

// Unwrap implements the interface used by the errors package.
func (e *AttachError) Unwrap() []error {
	return []error{ErrAttach, e.Err}
}
