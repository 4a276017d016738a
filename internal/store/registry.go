// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Partocare

package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/partocare/partosync/models"
)

// ParentRef extracts the parent record ID from a payload document. It
// returns an empty string when the payload carries no reference at all,
// which the caller treats as a validation failure for child tables.
type ParentRef func(payload json.RawMessage) (string, error)

// TableSpec describes one syncable entity table: its SQL table name and,
// for child tables, where to find the parent reference inside the payload.
//
// Table names reaching SQL text come exclusively from registered specs, so
// interpolating spec.Name into a query is safe by construction.
type TableSpec struct {
	// Name is both the wire-level table identifier and the SQL table name.
	Name string

	// ParentTable is the table the payload must reference, or "" for root
	// tables (patients).
	ParentTable string

	// ParentID extracts the referenced parent ID from a payload. Nil for
	// root tables.
	ParentID ParentRef
}

// Registry maps table names to their specs. It is built once at startup and
// read-only afterwards, replacing any per-call string switch over entity
// types: the conflict-check logic is written once and parameterized by spec.
type Registry struct {
	specs map[string]TableSpec
}

// NewRegistry builds the registry of every syncable table: patients,
// partographs, and the measurement tables, which all reference a parent
// partograph.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]TableSpec)}

	r.register(TableSpec{Name: models.TablePatients})
	r.register(TableSpec{
		Name:        models.TablePartographs,
		ParentTable: models.TablePatients,
		ParentID:    patientRef,
	})

	for _, name := range []string{
		models.TableFetalHeartRates,
		models.TableContractions,
		models.TableCervicalDilatations,
		models.TableDescents,
		models.TableBloodPressures,
		models.TableTemperatures,
		models.TablePulses,
		models.TableAmnioticFluids,
		models.TableMouldings,
		models.TableCaputs,
		models.TableOxytocinDoses,
		models.TableUrineOutputs,
	} {
		r.register(TableSpec{
			Name:        name,
			ParentTable: models.TablePartographs,
			ParentID:    partographRef,
		})
	}

	return r
}

func (r *Registry) register(spec TableSpec) {
	r.specs[spec.Name] = spec
}

// Lookup resolves a wire-level table name to its spec.
// Unknown names yield [ErrUnknownSyncTarget].
func (r *Registry) Lookup(name string) (TableSpec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return TableSpec{}, fmt.Errorf("%w: %q", ErrUnknownSyncTarget, name)
	}
	return spec, nil
}

// Tables returns all registered table names in stable order.
func (r *Registry) Tables() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TablesByDependency returns all registered table names ordered so every
// parent table comes before the tables referencing it. A device pushing its
// backlog in this order never submits a child before its parent exists on
// the server.
func (r *Registry) TablesByDependency() []string {
	depth := func(spec TableSpec) int {
		d := 0
		for spec.ParentTable != "" {
			d++
			spec = r.specs[spec.ParentTable]
		}
		return d
	}

	names := r.Tables()
	sort.SliceStable(names, func(i, j int) bool {
		return depth(r.specs[names[i]]) < depth(r.specs[names[j]])
	})
	return names
}

func partographRef(payload json.RawMessage) (string, error) {
	var head struct {
		PartographID string `json:"partograph_id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return "", fmt.Errorf("reading partograph reference: %w", err)
	}
	return head.PartographID, nil
}

func patientRef(payload json.RawMessage) (string, error) {
	var head struct {
		PatientID string `json:"patient_id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return "", fmt.Errorf("reading patient reference: %w", err)
	}
	return head.PatientID, nil
}
