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

package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv is the environment variable that overrides the base path.
const HomeEnv = "TSVM_HOME"

const (
	portablePath = ".tsvm"
	configDir    = "tsvm"
)

func checkPortable() bool {
	info, err := os.Stat(portablePath)
	return err == nil && info.IsDir()
}

// BasePath returns the directory in which all resources are located.
func BasePath() (string, error) {
	if p, ok := os.LookupEnv(HomeEnv); ok && p != "" {
		return p, nil
	}

	if checkPortable() {
		return portablePath, nil
	}

	cnf, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resources: %w", err)
	}

	return filepath.Join(cnf, configDir), nil
}

// JoinPath prepends the supplied path with the base path, if required.
//
// The function creates all folders necessary to reach the end of sub-path. It
// does not otherwise touch or create the file.
func JoinPath(path ...string) (string, error) {
	p := filepath.Join(path...)

	b, err := BasePath()
	if err != nil {
		return "", err
	}

	// do not prepend base path if it is already present
	if !strings.HasPrefix(p, b) {
		p = filepath.Join(b, p)
	}

	// check if path already exists
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}

	// create path if necessary
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", fmt.Errorf("resources: %w", err)
	}

	return p, nil
}

// StorageRoot returns the directory used as the storage root for file-backed
// peripherals. The directory is created if it does not exist.
func StorageRoot() (string, error) {
	p, err := JoinPath("storage", "")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", fmt.Errorf("resources: %w", err)
	}
	return p, nil
}
