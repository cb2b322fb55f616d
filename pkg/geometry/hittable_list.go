package geometry

import (
	"github.com/milkru/go-tracer/pkg/core"
	"github.com/milkru/go-tracer/pkg/material"
)

// HittableList is an ordered collection of shapes that is itself a Shape.
// Hit scans every shape linearly and returns the nearest intersection; on an
// exact tie in t the shape that appears first wins.
type HittableList []Shape

// NewHittableList creates a list from the given shapes
func NewHittableList(shapes ...Shape) HittableList {
	return HittableList(shapes)
}

// Add appends shapes to the list
func (l *HittableList) Add(shapes ...Shape) {
	*l = append(*l, shapes...)
}

// Hit returns the closest intersection across all shapes in the list
func (l HittableList) Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool) {
	var closestHit *material.HitRecord
	closestSoFar := tMax

	for _, shape := range l {
		// Each hit narrows the range, so shapes behind it are rejected early
		if hit, isHit := shape.Hit(ray, tMin, closestSoFar); isHit {
			closestSoFar = hit.T
			closestHit = hit
		}
	}

	return closestHit, closestHit != nil
}
