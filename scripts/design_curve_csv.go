package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/samber/lo"

	"github.com/Agrid-Dev/heatlosscalc/cmd/app"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/wire"
)

// DesignCurve writes the building loss of a room file for every outdoor
// temperature between from and to (inclusive, 1 °C steps).
func DesignCurve(roomFile, filename string, from, to int) error {
	f, err := wire.LoadRoomFile(roomFile)
	if err != nil {
		return err
	}
	rooms, err := app.RoomInputs(f.Rooms)
	if err != nil {
		return err
	}
	indoor := 21.0
	if f.IndoorC.Set {
		indoor = f.IndoorC.V
	}
	band, err := heatloss.ParseAgeBand(lo.Ternary(f.AgeBand == "", "D", f.AgeBand))
	if err != nil {
		return err
	}
	policy := heatloss.ParsePolicy(f.Policy)

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := append([]string{"Outdoor", "Transmission", "Ventilation", "Total"},
		lo.Map(rooms, func(r heatloss.RoomInput, _ int) string { return r.Room.Name })...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for t := from; t <= to; t++ {
		b := heatloss.ComputeBuildingLoss(rooms, indoor, float64(t), band, policy)
		record := []string{
			fmt.Sprintf("%d", t),
			fmt.Sprintf("%.2f", b.TransmissionW),
			fmt.Sprintf("%.2f", b.VentilationW),
			fmt.Sprintf("%.2f", b.TotalW),
		}
		for _, r := range b.Rooms {
			record = append(record, fmt.Sprintf("%.2f", r.TotalW))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: design_curve_csv <rooms.yaml> [out.csv]")
		os.Exit(2)
	}
	out := "design_curve.csv"
	if len(os.Args) > 2 {
		out = os.Args[2]
	}
	if err := DesignCurve(os.Args[1], out, -10, 15); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
