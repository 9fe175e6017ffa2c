package main

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/golightmeter/pkg/config"
	"github.com/itohio/golightmeter/pkg/device"
	"github.com/itohio/golightmeter/pkg/metering"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createMeteringTab(state),
		createSerialTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(500, 400))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(500, 400))
	d.Show()
}

// createMeteringTab edits the metering settings. Changes are sent to a
// connected meter and used as the defaults for the rest of the session.
func createMeteringTab(state *appState) *container.TabItem {
	isoEntry := widget.NewEntry()
	isoEntry.SetText(strconv.Itoa(state.cfg.Metering.ISO))

	modeNames := make([]string, len(metering.Modes))
	for i, m := range metering.Modes {
		modeNames[i] = metering.ModeName(m)
	}
	modeSelect := widget.NewSelect(modeNames, nil)
	modeSelect.SetSelected(metering.ModeName(metering.ModeFromName(state.cfg.Metering.Mode)))

	calibrationEntry := widget.NewEntry()
	calibrationEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Metering.Calibration))

	kEntry := widget.NewEntry()
	kEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Metering.K))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "ISO", Widget: isoEntry},
			{Text: "Metering Mode", Widget: modeSelect},
			{Text: "Shutter Calibration", Widget: calibrationEntry},
			{Text: "K Value", Widget: kEntry},
		},
		OnSubmit: func() {
			next := state.cfg.Metering
			if iso, err := strconv.Atoi(isoEntry.Text); err == nil {
				next.ISO = iso
			}
			if modeSelect.Selected != "" {
				next.Mode = modeSelect.Selected
			}
			if c, err := strconv.ParseFloat(calibrationEntry.Text, 32); err == nil {
				next.Calibration = float32(c)
			}
			if k, err := strconv.ParseFloat(kEntry.Text, 32); err == nil {
				next.K = float32(k)
			}

			if state.connected() {
				for _, cmd := range configCommands(state.cfg.Metering, next) {
					if err := state.send(cmd); err != nil {
						dialog.ShowError(err, state.window)
						return
					}
				}
			}

			state.cfg.Metering = next
		},
	}

	return container.NewTabItem("Metering", form)
}

// configCommands returns the console commands that move a meter from prev to next.
func configCommands(prev, next config.MeteringConfig) []string {
	var cmds []string
	if next.ISO != prev.ISO {
		cmds = append(cmds, fmt.Sprintf("config iso %d", next.ISO))
	}
	if metering.ModeFromName(next.Mode) != metering.ModeFromName(prev.Mode) {
		cmds = append(cmds, "config type "+metering.ModeName(metering.ModeFromName(next.Mode)))
	}
	if next.Calibration != prev.Calibration {
		cmds = append(cmds, "config calibration "+strconv.FormatFloat(float64(next.Calibration), 'g', -1, 32))
	}
	if next.K != prev.K {
		cmds = append(cmds, "config k "+strconv.FormatFloat(float64(next.K), 'g', -1, 32))
	}
	return cmds
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	// Get available serial ports
	ports, err := device.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			selectedPort := portMap[portSelect.Selected]
			if selectedPort == "" {
				selectedPort = portSelect.Selected // Fallback to selected text
			}
			if selectedPort == "" {
				return
			}

			changed := state.cfg.Serial.Port != selectedPort
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				changed = changed || state.cfg.Serial.BaudRate != baud
				state.cfg.Serial.BaudRate = baud
			}
			state.cfg.Serial.Port = selectedPort

			// Reconnect a live serial link on the new port
			if changed && state.connected() && !state.useMock {
				handleConnect(state)
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createMockTab creates the simulated scene configuration tab. Changes apply
// on the next connect.
func createMockTab(state *appState) *container.TabItem {
	minEntry := widget.NewEntry()
	minEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.MinLux))

	maxEntry := widget.NewEntry()
	maxEntry.SetText(fmt.Sprintf("%.0f", state.cfg.Mock.MaxLux))

	variationEntry := widget.NewEntry()
	variationEntry.SetText(fmt.Sprintf("%.2f", state.cfg.Mock.Variation))

	highlightEntry := widget.NewEntry()
	highlightEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Mock.Highlight))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Min Illuminance (lux)", Widget: minEntry},
			{Text: "Max Illuminance (lux)", Widget: maxEntry},
			{Text: "Variation", Widget: variationEntry},
			{Text: "Highlight Multiplier", Widget: highlightEntry},
		},
		OnSubmit: func() {
			if v, err := strconv.ParseFloat(minEntry.Text, 32); err == nil {
				state.cfg.Mock.MinLux = float32(v)
			}
			if v, err := strconv.ParseFloat(maxEntry.Text, 32); err == nil {
				state.cfg.Mock.MaxLux = float32(v)
			}
			if v, err := strconv.ParseFloat(variationEntry.Text, 32); err == nil {
				state.cfg.Mock.Variation = float32(v)
			}
			if v, err := strconv.ParseFloat(highlightEntry.Text, 32); err == nil {
				state.cfg.Mock.Highlight = float32(v)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}
