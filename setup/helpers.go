package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// PackageManager knows how to install a package on this system.
type PackageManager struct {
	Name string
	// Command and Args run the install; the package name is appended.
	Command string
	Args    []string
}

// InstallCommand returns the full command line installing pkg.
func (pm PackageManager) InstallCommand(pkg string) (string, []string) {
	args := append(append([]string(nil), pm.Args...), pkg)
	return pm.Command, args
}

// Known package managers, in detection order.
var packageManagers = []PackageManager{
	{Name: "apt-get", Command: "sudo", Args: []string{"apt-get", "install", "-y"}},
	{Name: "dnf", Command: "sudo", Args: []string{"dnf", "install", "-y"}},
	{Name: "pacman", Command: "sudo", Args: []string{"pacman", "-S", "--noconfirm"}},
	{Name: "zypper", Command: "sudo", Args: []string{"zypper", "install", "-y"}},
}

func detectPackageManager(lookPath func(string) (string, error)) (PackageManager, bool) {
	for _, pm := range packageManagers {
		if _, err := lookPath(pm.Name); err == nil {
			return pm, true
		}
	}
	return PackageManager{}, false
}

// confirm asks a yes/no question; an empty answer means yes.
func confirm(scanner *bufio.Scanner, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [Y/n]: ", question)
	if !scanner.Scan() {
		return false
	}
	input := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return input == "" || input == "y" || input == "yes"
}

// InstallDependency installs pkg with the detected package manager after
// asking the user.
func (d *Doctor) InstallDependency(scanner *bufio.Scanner, out io.Writer, pkg string) error {
	pm, ok := detectPackageManager(d.LookPath)
	if !ok {
		return fmt.Errorf("no supported package manager found")
	}

	fmt.Fprintf(out, "Package manager '%s' detected.\n", pm.Name)
	if !confirm(scanner, out, fmt.Sprintf("Do you want to install '%s' using %s?", pkg, pm.Name)) {
		return fmt.Errorf("installation aborted by user")
	}

	name, args := pm.InstallCommand(pkg)
	fmt.Fprintf(out, "Running: %s %s\n", name, strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin // sudo may prompt for a password

	return d.run(cmd)
}
