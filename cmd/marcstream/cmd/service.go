/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ssargent/marcstream/pkg/config"
)

const (
	serviceName = "marcstream.service"
	unitPath    = "/etc/systemd/system/marcstream.service"

	// fallbackExecPath is used when the installing binary's own path
	// cannot be resolved.
	fallbackExecPath = "/usr/local/bin/marcstream"
)

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage marcstream as a systemd service",
	Long: `Manage marcstream as a systemd service for production
deployments. The unit runs 'marcstream serve' against the installed
configuration, restarts on failure, and is sandboxed to the record
store directory.`,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install marcstream as a systemd service",
	Long: `Install marcstream as a systemd service.

This will:
- Create the configuration (bootstrapping a client API key) or reuse
  an existing one
- Check that every configured extraction field compiles
- Create the record store directory owned by the service user
- Write the systemd unit, enable it, and optionally start it

Examples:
  marcstream service install
  marcstream service install --data-dir /var/lib/marcstream --user marc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		configPath, _ := cmd.Flags().GetString("config")
		serviceUser, _ := cmd.Flags().GetString("user")
		port, _ := cmd.Flags().GetInt("port")
		startNow, _ := cmd.Flags().GetBool("start")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if os.Geteuid() != 0 {
			return fmt.Errorf("service install requires root privileges; run with: sudo marcstream service install")
		}

		var cfg *config.Config
		var err error
		if config.ConfigExists(configPath) {
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cmd.Printf("Loaded existing configuration from %s\n", configPath)
		} else {
			cfg, err = config.BootstrapConfig(configPath, dataDir)
			if err != nil {
				return err
			}
			cmd.Printf("Created new configuration at %s\n", configPath)
		}

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if port != 0 {
			cfg.Port = port
		}

		// A pattern typo should fail the install, not the first
		// service start at 3am.
		if _, err := compileFields(cfg); err != nil {
			return fmt.Errorf("configuration is not servable: %w", err)
		}

		if err := config.SaveConfig(cfg, configPath); err != nil {
			return err
		}
		if err := prepareDataDir(cfg.DataDir, serviceUser); err != nil {
			return err
		}

		execPath, err := os.Executable()
		if err != nil {
			execPath = fallbackExecPath
		}
		unit := systemdUnit(cfg, configPath, serviceUser, execPath)
		if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", unitPath, err)
		}

		if err := runSystemctl("daemon-reload"); err != nil {
			return err
		}
		if err := runSystemctl("enable", serviceName); err != nil {
			return err
		}
		cmd.Printf("Service enabled\n")

		if startNow {
			if err := runSystemctl("start", serviceName); err != nil {
				return err
			}
			cmd.Printf("Service started\n")
		}

		cmd.Printf("\nService: %s\n", serviceName)
		cmd.Printf("Config: %s\n", configPath)
		cmd.Printf("Records: %s\n", cfg.DataDir)
		cmd.Printf("Listen: %s:%d\n", cfg.Bind, cfg.Port)
		if !startNow {
			cmd.Printf("\nTo start the service: sudo systemctl start %s\n", serviceName)
		}
		cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// serviceLogsCmd represents the service logs command
var serviceLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show marcstream service logs",
	Long: `Show marcstream service logs using journalctl.

Examples:
  marcstream service logs
  marcstream service logs -f  # Follow logs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")

		journalArgs := []string{"-u", serviceName}
		if follow {
			journalArgs = append(journalArgs, "-f")
		}
		if lines > 0 {
			journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
		}
		return runCommand("journalctl", journalArgs...)
	},
}

// serviceUninstallCmd represents the service uninstall command
var serviceUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the marcstream service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall requires root privileges; run with: sudo marcstream service uninstall")
		}

		_ = runSystemctl("stop", serviceName) // Ignore errors if already stopped
		if err := runSystemctl("disable", serviceName); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}
		if _, err := os.Stat(unitPath); err == nil {
			if err := os.Remove(unitPath); err != nil {
				return fmt.Errorf("failed to remove unit file: %w", err)
			}
		}
		if err := runSystemctl("daemon-reload"); err != nil {
			return err
		}

		cmd.Printf("marcstream service uninstalled\n")
		cmd.Printf("Note: the configuration and record store were left in place\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(serviceLogsCmd)
	serviceCmd.AddCommand(serviceUninstallCmd)

	// start/stop/restart/status pass straight through to systemctl.
	for _, action := range []string{"start", "stop", "restart", "status"} {
		action := action
		serviceCmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("Run systemctl %s on the marcstream service", action),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSystemctl(action, serviceName)
			},
		})
	}

	// Install command flags
	installServiceCmd.Flags().String("data-dir", "/var/lib/marcstream", "Record store directory for the service")
	installServiceCmd.Flags().String("config", "", "Path to config file")
	installServiceCmd.Flags().String("user", "marc", "User to run the service as")
	installServiceCmd.Flags().Int("port", 0, "Port for the service (default: from config)")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	// Logs command flags
	serviceLogsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	serviceLogsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// prepareDataDir creates the record store directory and hands it to the
// service user, who is the only writer once the unit's sandbox is in
// effect.
func prepareDataDir(dataDir, serviceUser string) error {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	owner, err := user.Lookup(serviceUser)
	if err != nil {
		return fmt.Errorf("service user %q does not exist: %w", serviceUser, err)
	}
	uid, err := strconv.Atoi(owner.Uid)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(owner.Gid)
	if err != nil {
		return err
	}
	return os.Chown(dataDir, uid, gid)
}

// systemdUnit renders the unit file. The filesystem sandbox is locked
// down to the record store directory, which is all 'serve' writes to.
func systemdUnit(cfg *config.Config, configPath, serviceUser, execPath string) string {
	return fmt.Sprintf(`[Unit]
Description=marcstream MARC-21 record service
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
WorkingDirectory=%s
Restart=on-failure
NoNewPrivileges=true
ProtectSystem=strict
ProtectHome=read-only
PrivateTmp=true
UMask=0077
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, serviceUser, serviceUser, execPath, configPath, cfg.DataDir, cfg.DataDir)
}

// runSystemctl runs a systemctl command
func runSystemctl(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs an external command, streaming its output
func runCommand(name string, args ...string) error {
	command := exec.Command(name, args...)
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	return command.Run()
}
