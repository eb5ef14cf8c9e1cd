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

// Package wavwriter allows writing of audio data to disk as a WAV file. Note
// that audio data is buffered in memory in its entirity, and written to disk
// when the writer is closed.
//
// Samples are unsigned 8-bit mono PCM.
package wavwriter

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavWriter buffers PCM data for writing to a WAV file.
type WavWriter struct {
	filename   string
	sampleRate int
	buffer     []int
}

// New is the preferred method of initialisation for the WavWriter type.
func New(filename string, sampleRate int) (*WavWriter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("wavwriter: bad sample rate: %d", sampleRate)
	}

	aw := &WavWriter{
		filename:   filename,
		sampleRate: sampleRate,
		buffer:     make([]int, 0),
	}

	return aw, nil
}

// Filename returns the name of the file that will be written.
func (aw *WavWriter) Filename() string {
	return aw.filename
}

// Write implements the io.Writer interface. Each byte is a single sample.
func (aw *WavWriter) Write(p []uint8) (int, error) {
	for _, v := range p {
		aw.buffer = append(aw.buffer, int(v))
	}
	return len(p), nil
}

// Len returns the number of samples buffered.
func (aw *WavWriter) Len() int {
	return len(aw.buffer)
}

// Close writes the buffered samples to the WAV file.
func (aw *WavWriter) Close() (rerr error) {
	f, err := os.Create(aw.filename)
	if err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	defer func() {
		err := f.Close()
		if err != nil && rerr == nil {
			rerr = fmt.Errorf("wavwriter: %w", err)
		}
	}()

	enc := wav.NewEncoder(f, aw.sampleRate, 8, 1, 1)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  aw.sampleRate,
		},
		Data:           aw.buffer,
		SourceBitDepth: 8,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}

	return nil
}
