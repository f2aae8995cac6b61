package firmware

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script standing in for the
// extraction tool and returns its path.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "binwalk")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

// binwalkScript mimics binwalk -e: prints a signature table and creates
// _<name>.extracted in its working directory.
const binwalkScript = `img="$2"
name=$(basename "$img")
out="_$name.extracted"
mkdir -p "$out/squashfs-root/etc"
printf 'root:$1$abc$xyz:0:0:99999:7:::\n' > "$out/squashfs-root/etc/shadow"
printf 'port=53\n' > "$out/squashfs-root/etc/dnsmasq.conf"
cat <<'OUT'

DECIMAL       HEXADECIMAL     DESCRIPTION
--------------------------------------------------------------------------------
0             0x0             uImage header, header size: 64 bytes
64            0x40            Linux kernel 4.14.90 image
1048576       0x100000        Squashfs filesystem, little endian, version 4.0

OUT
echo "BusyBox v1.31.1 (2020-01-01) multi-call binary"
`
