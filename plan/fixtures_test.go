package plan

import "fmt"

func rect(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

func wall(id string, x1, y1, x2, y2 float64) Wall {
	return Wall{ID: id, Start: Point{X: x1, Y: y1}, End: Point{X: x2, Y: y2}, Thickness: 0.2}
}

// apartment59 is the reference 59 m² two-bathroom apartment
func apartment59() *FloorPlan {
	return &FloorPlan{
		TotalArea: 59,
		Rooms: []Room{
			{ID: "living", Type: RoomLiving, Name: "Living Room", Area: 18, Position: rect(0, 0, 4.5, 4)},
			{ID: "kitchen", Type: RoomKitchen, Name: "Kitchen", Area: 7, Position: rect(4.5, 0, 2.5, 2.8)},
			{ID: "master", Type: RoomMasterBed, Name: "Master Bedroom", Area: 12, Position: rect(0, 4, 3.6, 3.3)},
			{ID: "bed", Type: RoomBed, Name: "Bedroom", Area: 8, Position: rect(3.6, 4, 2.8, 2.9)},
			{ID: "bath1", Type: RoomBathroom, Name: "Bathroom 1", Area: 4, Position: rect(7, 0, 2, 2)},
			{ID: "bath2", Type: RoomBathroom, Name: "Bathroom 2", Area: 3.5, Position: rect(7, 2, 2, 1.75)},
			{ID: "entrance", Type: RoomEntrance, Name: "Entrance", Area: 2, Position: rect(4.5, 2.8, 2.5, 0.8)},
			{ID: "balcony", Type: RoomBalcony, Name: "Balcony", Area: 4.5, Position: rect(0, -1.2, 3.75, 1.2)},
		},
		Walls: []Wall{
			wall("w1", 0, 0, 9, 0),
			wall("w2", 9, 0, 9, 7.3),
			wall("w3", 9, 7.3, 0, 7.3),
			wall("w4", 0, 7.3, 0, 0),
			wall("w5", 0, 4, 9, 4),
			wall("w6", 4.5, 0, 4.5, 4),
			wall("w7", 7, 0, 7, 4),
			wall("w8", 3.6, 4, 3.6, 7.3),
			wall("w9", 6.4, 4, 6.4, 7.3),
			wall("w10", 4.5, 2.8, 7, 2.8),
		},
		Doors: []Door{
			{ID: "d1", Position: Point{X: 5.75, Y: 3.6}, Width: 0.9, Type: DoorSwing, ConnectedRooms: [2]string{"entrance", ""}},
			{ID: "d2", Position: Point{X: 1.8, Y: 4}, Width: 0.9, Type: DoorSwing, ConnectedRooms: [2]string{"master", "living"}},
			{ID: "d3", Position: Point{X: 7, Y: 1}, Width: 0.8, Type: DoorSliding, ConnectedRooms: [2]string{"bath1", "kitchen"}},
		},
		Windows: []Window{
			{ID: "win1", Position: Point{X: 2.25, Y: 0}, Width: 1.8, Height: 1.2, WallID: "w1"},
			{ID: "win2", Position: Point{X: 1.8, Y: 7.3}, Width: 1.5, Height: 1.2},
		},
		Fixtures: []Fixture{
			{ID: "f1", Type: FixtureToilet, Position: rect(7.1, 0.1, 0.4, 0.7), RoomID: "bath1"},
			{ID: "f2", Type: FixtureSink, Position: rect(7.6, 0.1, 0.6, 0.45), RoomID: "bath1"},
			{ID: "f3", Type: FixtureToilet, Position: rect(7.1, 2.1, 0.4, 0.7), RoomID: "bath2"},
			{ID: "f4", Type: FixtureKitchenSink, Position: rect(4.6, 0.1, 0.8, 0.6), RoomID: "kitchen"},
		},
	}
}

// sequentialIDs returns a deterministic id generator for fusion
func sequentialIDs() func(prefix string) string {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s-new-%d", prefix, n)
	}
}
