package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/arobi/sentinel/internal/geometry"
	"github.com/arobi/sentinel/internal/simerrors"
)

// csvColumns is the column order from §6. There is no CSV library
// anywhere in the retrieved example pack, so this reads/writes the format
// with the standard library's encoding/csv — a deliberate stdlib choice,
// not an oversight; see DESIGN.md.
var csvColumns = []string{
	"test_id", "aircraft_angle",
	"a1_init_pos_x", "a1_init_pos_y", "a1_init_pos_z",
	"a2_init_pos_x", "a2_init_pos_y", "a2_init_pos_z",
	"a1_init_speed_x", "a1_init_speed_y", "a1_init_speed_z",
	"a2_init_speed_x", "a2_init_speed_y", "a2_init_speed_z",
	"a1_init_target_x", "a1_init_target_y", "a1_init_target_z",
	"a2_init_target_x", "a2_init_target_y", "a2_init_target_z",
	"a1_final_pos_noavoid_x", "a1_final_pos_noavoid_y", "a1_final_pos_noavoid_z",
	"a2_final_pos_noavoid_x", "a2_final_pos_noavoid_y", "a2_final_pos_noavoid_z",
	"a1_final_pos_avoid_x", "a1_final_pos_avoid_y", "a1_final_pos_avoid_z",
	"a2_final_pos_avoid_x", "a2_final_pos_avoid_y", "a2_final_pos_avoid_z",
	"a1_final_speed_noavoid_x", "a1_final_speed_noavoid_y", "a1_final_speed_noavoid_z",
	"a2_final_speed_noavoid_x", "a2_final_speed_noavoid_y", "a2_final_speed_noavoid_z",
	"a1_final_speed_avoid_x", "a1_final_speed_avoid_y", "a1_final_speed_avoid_z",
	"a2_final_speed_avoid_x", "a2_final_speed_avoid_y", "a2_final_speed_avoid_z",
	"collision_noavoid", "collision_avoid",
	"min_dist_noavoid", "min_dist_avoid",
}

// Row is one archived scenario: the shared Record plus the two outcomes
// (avoidance off and on) the persisted CSV format bundles side by side.
type Row struct {
	Record  Record
	NoAvoid Result
	Avoid   Result
}

// ReadCSV parses rows from r in the §6 column order. A malformed row
// (wrong column count, or a field that fails to parse as the required
// numeric/boolean type) yields simerrors.ErrInvalidScenario for that row
// only; the reader continues with the remaining rows, matching the §7
// policy that one bad scenario does not abort the batch.
func ReadCSV(r io.Reader) ([]Row, []error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, []error{fmt.Errorf("%w: %v", simerrors.ErrInvalidScenario, err)}
	}

	var rows []Row
	var errs []error
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == "test_id" {
			continue // header row
		}
		row, err := parseRow(rec)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs
}

func parseRow(fields []string) (Row, error) {
	if len(fields) != len(csvColumns) {
		return Row{}, fmt.Errorf("%w: expected %d columns, got %d", simerrors.ErrInvalidScenario, len(csvColumns), len(fields))
	}

	idx := 0
	next := func() string {
		v := fields[idx]
		idx++
		return v
	}
	nextFloat := func() (float64, error) {
		s := next()
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", simerrors.ErrInvalidScenario, s, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: non-finite value %q", simerrors.ErrInvalidScenario, s)
		}
		return v, nil
	}
	nextVec := func() (geometry.Vec3, error) {
		x, err := nextFloat()
		if err != nil {
			return geometry.Vec3{}, err
		}
		y, err := nextFloat()
		if err != nil {
			return geometry.Vec3{}, err
		}
		z, err := nextFloat()
		if err != nil {
			return geometry.Vec3{}, err
		}
		return geometry.Vec3{X: x, Y: y, Z: z}, nil
	}
	nextBool := func() (bool, error) {
		s := next()
		switch s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, fmt.Errorf("%w: %q is not true/false", simerrors.ErrInvalidScenario, s)
		}
	}

	testID := next()
	angle, err := nextFloat()
	if err != nil {
		return Row{}, err
	}

	var errAgg error
	mustVec := func() geometry.Vec3 {
		v, err := nextVec()
		if err != nil && errAgg == nil {
			errAgg = err
		}
		return v
	}

	a1Pos := mustVec()
	a2Pos := mustVec()
	a1Speed := mustVec()
	a2Speed := mustVec()
	a1Target := mustVec()
	a2Target := mustVec()
	a1FinalPosNoAvoid := mustVec()
	a2FinalPosNoAvoid := mustVec()
	a1FinalPosAvoid := mustVec()
	a2FinalPosAvoid := mustVec()
	a1FinalSpeedNoAvoid := mustVec()
	a2FinalSpeedNoAvoid := mustVec()
	a1FinalSpeedAvoid := mustVec()
	a2FinalSpeedAvoid := mustVec()

	collisionNoAvoid, err := nextBool()
	if err != nil && errAgg == nil {
		errAgg = err
	}
	collisionAvoid, err := nextBool()
	if err != nil && errAgg == nil {
		errAgg = err
	}
	minDistNoAvoid, err := nextFloat()
	if err != nil && errAgg == nil {
		errAgg = err
	}
	minDistAvoid, err := nextFloat()
	if err != nil && errAgg == nil {
		errAgg = err
	}

	if errAgg != nil {
		return Row{}, errAgg
	}

	rec := Record{
		TestID:            testID,
		AircraftAngle:     angle,
		InitialPositions:  []geometry.Vec3{a1Pos, a2Pos},
		InitialVelocities: []geometry.Vec3{a1Speed, a2Speed},
		InitialTargets:    []geometry.Vec3{a1Target, a2Target},
	}

	return Row{
		Record: rec,
		NoAvoid: Result{
			Record:                  rec,
			FinalPositions:          []geometry.Vec3{a1FinalPosNoAvoid, a2FinalPosNoAvoid},
			FinalVelocities:         []geometry.Vec3{a1FinalSpeedNoAvoid, a2FinalSpeedNoAvoid},
			Collision:               collisionNoAvoid,
			MinimalRelativeDistance: minDistNoAvoid,
			AvoidCollisions:         false,
		},
		Avoid: Result{
			Record:                  rec,
			FinalPositions:          []geometry.Vec3{a1FinalPosAvoid, a2FinalPosAvoid},
			FinalVelocities:         []geometry.Vec3{a1FinalSpeedAvoid, a2FinalSpeedAvoid},
			Collision:               collisionAvoid,
			MinimalRelativeDistance: minDistAvoid,
			AvoidCollisions:         true,
		},
	}, nil
}

// WriteCSV writes rows to w in the §6 column order, header first.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(formatRow(row)); err != nil {
			return err
		}
	}
	return cw.Error()
}

func formatRow(row Row) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	vec := func(v geometry.Vec3) []string { return []string{f(v.X), f(v.Y), f(v.Z)} }
	b := func(v bool) string {
		if v {
			return "true"
		}
		return "false"
	}

	rec := row.Record
	var p0, p1, t0, t1 geometry.Vec3
	if len(rec.InitialPositions) > 0 {
		p0 = rec.InitialPositions[0]
	}
	if len(rec.InitialPositions) > 1 {
		p1 = rec.InitialPositions[1]
	}
	var v0, v1 geometry.Vec3
	if len(rec.InitialVelocities) > 0 {
		v0 = rec.InitialVelocities[0]
	}
	if len(rec.InitialVelocities) > 1 {
		v1 = rec.InitialVelocities[1]
	}
	if len(rec.InitialTargets) > 0 {
		t0 = rec.InitialTargets[0]
	}
	if len(rec.InitialTargets) > 1 {
		t1 = rec.InitialTargets[1]
	}

	var out []string
	out = append(out, rec.TestID, f(rec.AircraftAngle))
	out = append(out, vec(p0)...)
	out = append(out, vec(p1)...)
	out = append(out, vec(v0)...)
	out = append(out, vec(v1)...)
	out = append(out, vec(t0)...)
	out = append(out, vec(t1)...)

	finalPos := func(res Result, idx int) geometry.Vec3 {
		if idx < len(res.FinalPositions) {
			return res.FinalPositions[idx]
		}
		return geometry.Vec3{}
	}
	finalVel := func(res Result, idx int) geometry.Vec3 {
		if idx < len(res.FinalVelocities) {
			return res.FinalVelocities[idx]
		}
		return geometry.Vec3{}
	}

	out = append(out, vec(finalPos(row.NoAvoid, 0))...)
	out = append(out, vec(finalPos(row.NoAvoid, 1))...)
	out = append(out, vec(finalPos(row.Avoid, 0))...)
	out = append(out, vec(finalPos(row.Avoid, 1))...)
	out = append(out, vec(finalVel(row.NoAvoid, 0))...)
	out = append(out, vec(finalVel(row.NoAvoid, 1))...)
	out = append(out, vec(finalVel(row.Avoid, 0))...)
	out = append(out, vec(finalVel(row.Avoid, 1))...)

	out = append(out, b(row.NoAvoid.Collision), b(row.Avoid.Collision))
	out = append(out, f(row.NoAvoid.MinimalRelativeDistance), f(row.Avoid.MinimalRelativeDistance))

	return out
}
