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

// Package rom defines the boot ROM images of a machine host and the ordered
// set in which they are composed into the address space.
//
// Composition is deterministic. The image at index zero occupies the boot
// vector at address zero. Each later image occupies the window at
// index*WindowSize unless the image was created with an explicit base
// address.
package rom

import (
	"errors"
	"fmt"
	"strings"
)

// WindowSize is the size of each ROM window and the maximum size of an image.
const WindowSize = 65536

// BootVector is the address of the window occupied by the first image.
const BootVector = 0

// Sentinel errors returned by the rom package.
var (
	ErrEmptySet   = errors.New("rom set is empty")
	ErrEmptyImage = errors.New("rom image is empty")
	ErrImageSize  = errors.New("rom image too large")
	ErrBase       = errors.New("rom image base is not valid")
)

// Image is a named, immutable ROM image.
type Image struct {
	name  string
	data  []byte
	base  int
	fixed bool
}

// NewImage creates an image that will be mapped into the next window in the
// set. The data is copied.
func NewImage(name string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("rom: %s: %w", name, ErrEmptyImage)
	}
	if len(data) > WindowSize {
		return Image{}, fmt.Errorf("rom: %s: %w (%d bytes)", name, ErrImageSize, len(data))
	}

	img := Image{
		name: name,
		data: make([]byte, len(data)),
	}
	copy(img.data, data)

	return img, nil
}

// NewImageAt creates an image with an explicit base address.
func NewImageAt(name string, data []byte, base int) (Image, error) {
	if base < 0 {
		return Image{}, fmt.Errorf("rom: %s: %w (%d)", name, ErrBase, base)
	}
	img, err := NewImage(name, data)
	if err != nil {
		return Image{}, err
	}
	img.base = base
	img.fixed = true
	return img, nil
}

// Name of image.
func (img Image) Name() string {
	return img.name
}

// Len returns the number of bytes in the image.
func (img Image) Len() int {
	return len(img.data)
}

// Bytes returns a copy of the image data.
func (img Image) Bytes() []byte {
	b := make([]byte, len(img.data))
	copy(b, img.data)
	return b
}

// CopyTo copies the image data into dst, returning the number of bytes
// copied.
func (img Image) CopyTo(dst []byte) int {
	return copy(dst, img.data)
}

// Base returns the explicit base address of the image. The boolean is false if
// the image does not have an explicit base.
func (img Image) Base() (int, bool) {
	return img.base, img.fixed
}

func (img Image) String() string {
	if img.fixed {
		return fmt.Sprintf("%s (%d bytes at %#x)", img.name, len(img.data), img.base)
	}
	return fmt.Sprintf("%s (%d bytes)", img.name, len(img.data))
}

// Placement is where an image is to be mapped.
type Placement struct {
	Image Image
	Base  int
}

// End returns the first address after the placement.
func (p Placement) End() int {
	return p.Base + p.Image.Len()
}

// Set is the ordered list of images used to boot a machine host. Once
// created the set cannot be changed.
type Set struct {
	images []Image
}

// NewSet creates a new ROM set. At least one image is required.
func NewSet(images ...Image) (Set, error) {
	if len(images) == 0 {
		return Set{}, fmt.Errorf("rom: %w", ErrEmptySet)
	}

	s := Set{
		images: make([]Image, len(images)),
	}
	copy(s.images, images)

	return s, nil
}

// Len returns the number of images in the set.
func (s Set) Len() int {
	return len(s.images)
}

// Image returns the image at index i.
func (s Set) Image(i int) (Image, bool) {
	if i < 0 || i >= len(s.images) {
		return Image{}, false
	}
	return s.images[i], true
}

// Images returns a copy of the list of images in the set.
func (s Set) Images() []Image {
	c := make([]Image, len(s.images))
	copy(c, s.images)
	return c
}

// Placements returns the placement of every image in composition order.
// Returns ErrEmptySet if the set was not created with NewSet.
func (s Set) Placements() ([]Placement, error) {
	if len(s.images) == 0 {
		return nil, fmt.Errorf("rom: %w", ErrEmptySet)
	}

	p := make([]Placement, 0, len(s.images))
	for i, img := range s.images {
		base := BootVector + i*WindowSize
		if b, ok := img.Base(); ok {
			base = b
		}
		p = append(p, Placement{Image: img, Base: base})
	}

	return p, nil
}

func (s Set) String() string {
	n := make([]string, 0, len(s.images))
	for _, img := range s.images {
		n = append(n, img.name)
	}
	return fmt.Sprintf("[%s]", strings.Join(n, ", "))
}
