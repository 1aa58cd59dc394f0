package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"gosprog/host/detect"
	"gosprog/host/serial"
	"gosprog/host/serprog"
	"gosprog/protocol"
)

var (
	portFlag string
	baudFlag int
	freqFlag uint32
	addrFlag uint32
	sizeFlag int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gosprog-host",
		Short: "Talk to a gosprog serprog SPI programmer",
		Long: `gosprog-host drives a serprog-compatible SPI flash programmer over
its USB serial port: device discovery, capability queries, JEDEC chip
identification and raw flash reads.

Writing and erasing are left to flashrom, which speaks to the same
device with -p serprog:dev=/dev/ttyACM0.`,
	}

	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "Serial port (auto-detect if not specified)")
	rootCmd.PersistentFlags().IntVarP(&baudFlag, "baud", "b", 0, "Baud rate override (USB CDC ignores it)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		RunE:  runList,
	}

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Find a connected programmer",
		Long:  "Scan serial ports for a device answering the serprog handshake.",
		RunE:  runProbe,
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show programmer capabilities",
		RunE:  runInfo,
	}

	idCmd := &cobra.Command{
		Use:   "id",
		Short: "Read the JEDEC ID of the attached flash chip",
		RunE:  runID,
	}
	idCmd.Flags().Uint32Var(&freqFlag, "freq", 0, "SPI clock in Hz (0 = device default)")

	readCmd := &cobra.Command{
		Use:   "read <out.bin>",
		Short: "Read flash contents to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRead,
	}
	readCmd.Flags().Uint32Var(&addrFlag, "addr", 0, "Start address")
	readCmd.Flags().IntVar(&sizeFlag, "size", 0, "Number of bytes to read (required)")
	readCmd.Flags().Uint32Var(&freqFlag, "freq", 0, "SPI clock in Hz (0 = device default)")
	_ = readCmd.MarkFlagRequired("size")

	rootCmd.AddCommand(listCmd, probeCmd, infoCmd, idCmd, readCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	result, err := findDevice()
	if err != nil {
		return err
	}
	fmt.Printf("Found %q on %s\n", result.Name, result.Port)
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	client, closePort, err := connect()
	if err != nil {
		return err
	}
	defer closePort()

	version, err := client.Version()
	if err != nil {
		return err
	}
	name, err := client.ProgrammerName()
	if err != nil {
		return err
	}
	serbuf, err := client.SerialBufferSize()
	if err != nil {
		return err
	}
	buses, err := client.BusTypes()
	if err != nil {
		return err
	}
	cmdmap, err := client.CommandMap()
	if err != nil {
		return err
	}

	fmt.Printf("Programmer:    %s\n", name)
	fmt.Printf("Protocol:      serprog v%d\n", version)
	fmt.Printf("Buffer size:   %d bytes\n", serbuf)
	fmt.Printf("Bus types:    %s\n", busNames(buses))
	fmt.Println("Commands:")
	for op := byte(0); op < protocol.OpcodeCount; op++ {
		if protocol.CmdMapHas(cmdmap, op) {
			fmt.Printf("  0x%02X %s\n", op, protocol.OpcodeName(op))
		}
	}
	return nil
}

func runID(cmd *cobra.Command, args []string) error {
	client, closePort, err := connect()
	if err != nil {
		return err
	}
	defer closePort()

	if err := setupSPI(client); err != nil {
		return err
	}

	id, err := client.JEDECID()
	if err != nil {
		return err
	}
	fmt.Printf("JEDEC ID: %02X %02X %02X\n", id[0], id[1], id[2])
	if id[0] == 0xFF || id[0] == 0x00 {
		fmt.Println("Warning: no chip detected (bus floating?)")
	}
	return nil
}

func runRead(cmd *cobra.Command, args []string) error {
	outPath := args[0]
	if sizeFlag <= 0 {
		return fmt.Errorf("--size must be positive")
	}

	client, closePort, err := connect()
	if err != nil {
		return err
	}
	defer closePort()

	if err := setupSPI(client); err != nil {
		return err
	}

	bar := progressbar.DefaultBytes(int64(sizeFlag), "reading")
	data, err := client.ReadFlash(addrFlag, sizeFlag, func(n int) {
		_ = bar.Add(n)
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	fmt.Printf("\nWrote %d bytes to %s\n", len(data), outPath)
	return nil
}

// connect opens the selected or detected port and syncs with the
// programmer.
func connect() (*serprog.Client, func(), error) {
	portName := portFlag
	if portName == "" {
		result, err := findDevice()
		if err != nil {
			return nil, nil, err
		}
		portName = result.Port
		fmt.Printf("Found %q on %s\n", result.Name, result.Port)
	}

	cfg := serial.DefaultConfig(portName)
	if baudFlag > 0 {
		cfg.Baud = baudFlag
	}

	port, err := serial.Open(cfg)
	if err != nil {
		return nil, nil, err
	}

	client := serprog.NewClient(port)
	if err := client.Sync(); err != nil {
		port.Close()
		return nil, nil, err
	}
	return client, func() { port.Close() }, nil
}

func findDevice() (*detect.Result, error) {
	if portFlag != "" {
		return detect.ProbeOn(portFlag, baudFlag)
	}
	fmt.Println("Detecting programmer...")
	return detect.Probe(baudFlag)
}

// setupSPI selects the SPI bus and applies the requested clock.
func setupSPI(client *serprog.Client) error {
	if err := client.SetBusType(protocol.BusSPI); err != nil {
		return err
	}
	if freqFlag > 0 {
		applied, err := client.SetSPIFreq(freqFlag)
		if err != nil {
			return err
		}
		fmt.Printf("SPI clock: %d Hz\n", applied)
	}
	return nil
}

func busNames(mask uint8) string {
	names := ""
	add := func(bit uint8, name string) {
		if mask&bit != 0 {
			names += " " + name
		}
	}
	add(protocol.BusParallel, "parallel")
	add(protocol.BusLPC, "lpc")
	add(protocol.BusFWH, "fwh")
	add(protocol.BusSPI, "spi")
	if names == "" {
		return " none"
	}
	return names
}
