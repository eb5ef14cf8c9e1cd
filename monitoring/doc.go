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
// Package monitoring serves the state of running machine hosts over HTTP.
//
// The API is:
//
//	GET  /api/hosts                          list of registered hosts
//	GET  /api/host/{id}                      snapshot of the host
//	GET  /api/host/{id}/watchdogs            watchdogs of the host
//	POST /api/host/{id}/acknowledge/{name}   acknowledge a tripped watchdog
//	POST /api/pause                          pause the run loop
//	POST /api/continue                       continue the run loop
//	GET  /api/log                            most recent log entries (?n=20&format=json)
//	GET  /api/resource                       CPU and memory use of the process
//	GET  /api/profile                        summary of a short CPU profile
//
// The pause and continue requests take effect through the State() function,
// which is meant to be used in the continueCheck function of a run loop.
package monitoring
