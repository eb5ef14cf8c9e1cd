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

// Package romloader resolves ROM identifiers to ROM images.
//
// An identifier is resolved in the following order:
//
//  1. the name of a built-in image (eg. "bios")
//  2. an http or https URL
//  3. a file, either as given or relative to one of the search paths of the
//     Loader. The extensions ".rom" and ".bin" are tried if the identifier
//     does not name a file.
//
// Image data may be gzip compressed. Compression is detected by the magic
// header and not by the file extension.
//
// An identifier may be suffixed with an explicit base address, for example
// "basic@0x20000", in which case the image is placed at that address rather
// than the next ROM window.
//
// Images larger than the ROM window size are truncated. A failure to resolve
// an identifier is a boot error.
package romloader
