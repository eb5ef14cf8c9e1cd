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

package disk

// StatusCode is the status code reported by the drive in answer to a DEVSTU
// query.
type StatusCode uint8

// List of valid status codes.
const (
	Standby               StatusCode = 0
	OperationFailed       StatusCode = 1
	IllegalCommand        StatusCode = 128
	NoSuchFile            StatusCode = 129
	FileAlreadyOpened     StatusCode = 130
	OperationNotPermitted StatusCode = 131
	ReadOnly              StatusCode = 132
	NotAFile              StatusCode = 133
	NotADirectory         StatusCode = 134
	NoFileOpened          StatusCode = 135
	SystemIOError         StatusCode = 192
	SystemSecurityError   StatusCode = 193
)

func (c StatusCode) String() string {
	switch c {
	case Standby:
		return "READY"
	case OperationFailed:
		return "OPERATION FAILED"
	case IllegalCommand:
		return "SYNTAX ERROR"
	case NoSuchFile:
		return "NO SUCH FILE EXISTS"
	case FileAlreadyOpened:
		return "FILE ALREADY OPENED"
	case OperationNotPermitted:
		return "OPERATION NOT PERMITTED"
	case ReadOnly:
		return "READ ONLY"
	case NotAFile:
		return "NOT A FILE"
	case NotADirectory:
		return "NOT A DIRECTORY"
	case NoFileOpened:
		return "NO FILE OPENED"
	case SystemIOError:
		return "IO ERROR ON SIMULATED DRIVE"
	case SystemSecurityError:
		return "SECURITY ERROR ON SIMULATED DRIVE"
	}
	return ""
}

// Answer framing used by devices that reply to query commands.
const (
	UnitSeparator  = 0x1f
	EndOfSendBlock = 0x17
)

// ComposeAnswer joins the fields with the unit separator and terminates the
// answer with the end of send block marker.
func ComposeAnswer(fields ...string) []byte {
	var b []byte
	for i, f := range fields {
		if i > 0 {
			b = append(b, UnitSeparator)
		}
		b = append(b, f...)
	}
	return append(b, EndOfSendBlock)
}
