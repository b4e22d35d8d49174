package preflight

import (
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalPipe reports one socket found in the runtime directory.
type LocalPipe struct {
	Name      string
	Socket    string
	Listening bool
}

// ProbeLocalPipes lists the sockets in dir and whether a producer is
// accepting on each. A socket nobody answers on is left over from a crash;
// the next push on that name replaces it.
func ProbeLocalPipes(dir string, timeout time.Duration) ([]LocalPipe, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []LocalPipe
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".sock")
		if !ok || e.IsDir() {
			continue
		}
		socket := filepath.Join(dir, e.Name())
		status := LocalPipe{Name: name, Socket: socket}
		if conn, err := net.DialTimeout("unix", socket, timeout); err == nil {
			status.Listening = true
			_ = conn.Close()
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
