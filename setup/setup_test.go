package setup

import (
	"bufio"
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLookPath(installed ...string) func(string) (string, error) {
	set := map[string]bool{}
	for _, name := range installed {
		set[name] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", exec.ErrNotFound
	}
}

func TestProbeReport(t *testing.T) {
	d := &Doctor{LookPath: fakeLookPath("parec", "pactl")}
	r := d.Probe()

	assert.True(t, r.CanCapture())
	assert.False(t, r.CanMix())
	assert.Equal(t, []string{"pw-record", "ffmpeg"}, binaries(r.Missing()))

	var out bytes.Buffer
	r.Print(&out)
	assert.Contains(t, out.String(), "✔ parec")
	assert.Contains(t, out.String(), "/usr/bin/parec")
	assert.Contains(t, out.String(), "✘ ffmpeg")
	assert.Contains(t, out.String(), "Combined recording is unavailable")
	assert.NotContains(t, out.String(), "No capture tool found")
}

func TestEnsureEnvironmentInstallsMissingPackages(t *testing.T) {
	var ran [][]string
	d := &Doctor{
		LookPath: fakeLookPath("apt-get", "pw-record", "pactl"),
		Run: func(cmd *exec.Cmd) error {
			ran = append(ran, cmd.Args)
			return nil
		},
	}
	scanner := bufio.NewScanner(strings.NewReader("y\n\n"))
	var out bytes.Buffer

	_, err := d.EnsureEnvironment(scanner, &out)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"sudo", "apt-get", "install", "-y", "pulseaudio-utils"},
		{"sudo", "apt-get", "install", "-y", "ffmpeg"},
	}, ran)
	assert.Contains(t, out.String(), "Package manager 'apt-get' detected.")
}

func TestEnsureEnvironmentRespectsNo(t *testing.T) {
	var ran int
	d := &Doctor{
		LookPath: fakeLookPath("pacman", "pw-record", "pactl", "parec"),
		Run: func(*exec.Cmd) error {
			ran++
			return nil
		},
	}
	var out bytes.Buffer

	report, err := d.EnsureEnvironment(bufio.NewScanner(strings.NewReader("n\n")), &out)
	require.NoError(t, err)
	assert.Zero(t, ran)
	assert.False(t, report.CanMix())
	assert.Contains(t, out.String(), "installation aborted by user")
}

func TestEnsureEnvironmentWithoutPackageManager(t *testing.T) {
	d := &Doctor{LookPath: fakeLookPath()}

	_, err := d.EnsureEnvironment(bufio.NewScanner(strings.NewReader("")), &bytes.Buffer{})
	assert.ErrorContains(t, err, "no supported package manager")
}

func TestInstallDependencyReportsFailure(t *testing.T) {
	d := &Doctor{
		LookPath: fakeLookPath("dnf"),
		Run:      func(*exec.Cmd) error { return errors.New("exit status 1") },
	}
	err := d.InstallDependency(bufio.NewScanner(strings.NewReader("yes\n")), &bytes.Buffer{}, "ffmpeg")
	assert.Error(t, err)
}

func TestPackageManagerInstallCommand(t *testing.T) {
	pm, ok := detectPackageManager(fakeLookPath("zypper", "dnf"))
	require.True(t, ok)
	assert.Equal(t, "dnf", pm.Name)

	name, args := pm.InstallCommand("ffmpeg")
	assert.Equal(t, "sudo", name)
	assert.Equal(t, []string{"dnf", "install", "-y", "ffmpeg"}, args)
	assert.Equal(t, []string{"dnf", "install", "-y"}, pm.Args, "the template is not modified")
}
