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

// Package govern defines the states a machine host can be in while it is
// being driven by a run loop. The state is returned by the continueCheck()
// function supplied to the Run() functions of the hardware and session
// packages.
package govern
