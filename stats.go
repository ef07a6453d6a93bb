package main

import (
	"fmt"

	"github.com/pterm/pterm"
)

// EndpointStats counts packet outcomes attributed to one endpoint.
type EndpointStats struct {
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"` // packets delivered to this endpoint
	Dropped   int `json:"dropped"`   // packets this endpoint sent that were lost
	Ignored   int `json:"ignored"`   // delivered packets with no matching transition
}

// SimulationStats aggregates counters for the whole simulation.
type SimulationStats struct {
	Client              EndpointStats `json:"client"`
	Server              EndpointStats `json:"server"`
	HandshakesCompleted int           `json:"handshakesCompleted"`
	DataAcknowledged    int           `json:"dataAcknowledged"`
	InFlight            int           `json:"inFlight"`
}

// PrintStats renders the statistics table to the terminal.
func PrintStats(stats *SimulationStats) {
	if stats == nil {
		pterm.Warning.Println("no stats available")
		return
	}
	data := pterm.TableData{
		{"Endpoint", "Sent", "Delivered", "Dropped", "Ignored"},
		{"client", fmt.Sprint(stats.Client.Sent), fmt.Sprint(stats.Client.Delivered), fmt.Sprint(stats.Client.Dropped), fmt.Sprint(stats.Client.Ignored)},
		{"server", fmt.Sprint(stats.Server.Sent), fmt.Sprint(stats.Server.Delivered), fmt.Sprint(stats.Server.Dropped), fmt.Sprint(stats.Server.Ignored)},
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		fmt.Printf("stats: %+v\n", *stats)
		return
	}
	pterm.Info.Printfln("handshakes completed: %d", stats.HandshakesCompleted)
	pterm.Info.Printfln("data packets acknowledged: %d", stats.DataAcknowledged)
	pterm.Info.Printfln("packets still in flight: %d", stats.InFlight)
}
