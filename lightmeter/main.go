package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/golightmeter/pkg/config"
	"github.com/itohio/golightmeter/pkg/device"
	"github.com/itohio/golightmeter/pkg/gridview"
)

// maxHistory is the number of console lines kept in the log pane.
const maxHistory = 500

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated meter instead of serial port")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	application := app.NewWithID("com.itohio.golightmeter")

	window := application.NewWindow("4x5 Light Meter")
	window.Resize(fyne.NewSize(900, 600))
	window.CenterOnScreen()

	state := &appState{
		cfg:     cfg,
		window:  window,
		useMock: *mockFlag,
		history: binding.NewStringList(),
		grid:    gridview.New(),
	}

	toolbar := createToolbar(state)

	historyList := widget.NewListWithData(state.history,
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(item binding.DataItem, o fyne.CanvasObject) {
			o.(*widget.Label).Bind(item.(binding.String))
		},
	)

	commandEntry := widget.NewEntry()
	commandEntry.SetPlaceHolder("Console command, e.g. config iso 400")
	commandEntry.OnSubmitted = func(text string) {
		if err := state.send(text); err != nil {
			dialog.ShowError(err, window)
			return
		}
		commandEntry.SetText("")
	}

	split := container.NewHSplit(
		state.grid,
		container.NewBorder(nil, commandEntry, nil, nil, historyList),
	)
	split.Offset = 0.55

	window.SetContent(container.NewBorder(toolbar, nil, nil, nil, split))
	window.SetOnClosed(func() {
		state.disconnect()
	})
	window.ShowAndRun()
}

// appState holds the application state.
type appState struct {
	cfg     *config.Config
	device  device.Device
	window  fyne.Window
	grid    *gridview.GridWidget
	history binding.StringList
	useMock bool

	connectBtn *widget.Button
	measureBtn *widget.Button

	readerDone chan struct{} // Closed when the report reader exits
}

// createToolbar creates the application toolbar with Connect, Measure and Settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	measureBtn := widget.NewButtonWithIcon("Measure", theme.MediaPlayIcon(), func() {
		if err := state.send("start measure"); err != nil {
			dialog.ShowError(err, state.window)
		}
	})
	measureBtn.Disable()
	state.measureBtn = measureBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	return container.NewBorder(
		nil, // top
		nil, // bottom
		container.NewHBox(connectBtn, settingsBtn), // left
		container.NewHBox(measureBtn),              // right
		nil,                                        // center (spacer)
	)
}

func (s *appState) connected() bool {
	return s.device != nil && s.device.IsConnected()
}

// send writes a console command to the connected meter and echoes it into the log.
func (s *appState) send(command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil
	}
	if !s.connected() {
		return device.ErrNotConnected
	}
	if err := s.device.Send(command); err != nil {
		return fmt.Errorf("failed to send %q: %w", command, err)
	}
	s.appendHistory("> " + command)
	return nil
}

// appendHistory adds a line to the log pane. Must run on the main thread.
func (s *appState) appendHistory(line string) {
	lines, _ := s.history.Get()
	lines = append(lines, line)
	if len(lines) > maxHistory {
		lines = lines[len(lines)-maxHistory:]
	}
	s.history.Set(lines)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.connected() {
		state.disconnect()
		state.measureBtn.Disable()
		state.connectBtn.SetIcon(theme.LoginIcon())
		if state.useMock {
			fmt.Println("Disconnected from simulated meter")
		} else {
			fmt.Println("Disconnected from serial port")
		}
		return
	}

	var dev device.Device
	if state.useMock {
		dev = device.NewMock(state.cfg)
		fmt.Println("Using simulated meter")
	} else {
		dev = device.NewSerial(state.cfg.Serial.Port, state.cfg.Serial.BaudRate, device.DefaultBufferSize)
	}

	if err := dev.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to start simulated meter: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	state.device = dev
	if state.useMock {
		fmt.Println("Connected to simulated meter")
	} else {
		fmt.Printf("Connected to serial port: %s\n", state.cfg.Serial.Port)
	}

	state.measureBtn.Enable()
	state.connectBtn.SetIcon(theme.LogoutIcon())

	done := make(chan struct{})
	state.readerDone = done
	go readReports(state, dev.Reports(), done)
}

// disconnect closes the device and waits for the report reader to drain.
func (s *appState) disconnect() {
	if s.device == nil {
		return
	}
	if err := s.device.Close(); err != nil {
		fmt.Printf("Error closing device: %v\n", err)
	}
	if s.readerDone != nil {
		<-s.readerDone
		s.readerDone = nil
	}
	s.device = nil
}

// readReports forwards device reports to the widgets until the channel closes.
func readReports(state *appState, reports <-chan device.Report, done chan<- struct{}) {
	defer close(done)
	for r := range reports {
		line := historyLine(r)
		frame, isMeasurement := gridview.Frame{}, r.Kind == device.Measurement
		if isMeasurement {
			frame = gridview.FrameFromReport(r)
		}

		fyne.Do(func() {
			if isMeasurement {
				state.grid.Update(frame)
			}
			if line != "" {
				state.appendHistory(line)
			}
		})
	}
}

// historyLine renders a report as one line of the log pane.
func historyLine(r device.Report) string {
	ts := r.Time.Format("15:04:05")
	switch r.Kind {
	case device.Measurement:
		return fmt.Sprintf("%s %s [%s]", ts, r.Recommendation, r.Mode)
	case device.Failure:
		return fmt.Sprintf("%s ERROR %s", ts, r.Text)
	default:
		if strings.TrimSpace(r.Text) == "" {
			return ""
		}
		return fmt.Sprintf("%s %s", ts, r.Text)
	}
}
