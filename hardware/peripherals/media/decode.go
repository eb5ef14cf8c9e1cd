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

package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// ErrFormat is returned for files that are not a supported audio format.
var ErrFormat = errors.New("unsupported audio format")

// PCM is decoded audio.
type PCM struct {
	SampleRate int

	// unsigned 8-bit mono samples. stereo sources are reduced to the left
	// channel
	Data []uint8
}

// Decode the named audio file.
func Decode(filename string) (PCM, error) {
	f, err := os.Open(filename)
	if err != nil {
		return PCM{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	}

	return PCM{}, fmt.Errorf("%w: %s", ErrFormat, filepath.Ext(filename))
}

func decodeWAV(r io.ReadSeeker) (PCM, error) {
	dec := wav.NewDecoder(r)
	if dec == nil || !dec.IsValidFile() {
		return PCM{}, fmt.Errorf("wav: %w: not a valid wav file", ErrFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("wav: %w", err)
	}

	chans := max(int(dec.NumChans), 1)

	p := PCM{
		SampleRate: int(dec.SampleRate),
		Data:       make([]uint8, 0, len(buf.Data)/chans),
	}

	// eight bit wav data is already unsigned. wider samples are signed and are
	// reduced to their most significant byte
	shift := int(dec.BitDepth) - 8

	for i := 0; i < len(buf.Data); i += chans {
		v := buf.Data[i]
		if shift > 0 {
			v = (v >> shift) + 128
		}
		p.Data = append(p.Data, uint8(v))
	}

	return p, nil
}

func decodeMP3(r io.Reader) (PCM, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return PCM{}, fmt.Errorf("mp3: %w", err)
	}

	p := PCM{
		SampleRate: dec.SampleRate(),
	}

	// the decoded stream is always 16bit little endian with two channels. a
	// sample is four bytes and only the left channel is kept
	chunk := make([]byte, 4096)
	for {
		n, err := io.ReadFull(dec, chunk)
		for i := 0; i+1 < n; i += 4 {
			v := int16(uint16(chunk[i]) | uint16(chunk[i+1])<<8)
			p.Data = append(p.Data, uint8((int(v)>>8)+128))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return PCM{}, fmt.Errorf("mp3: %w", err)
		}
	}

	return p, nil
}
