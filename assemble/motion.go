package assemble

import (
	"fmt"

	"daily-shorts-pipeline/types"
)

// Motion models the camera effect applied to one asset inside the content
// slot. All queries take an absolute time so a clip continued from a
// previous chunk resumes motion at its timeOffset instead of restarting.
type Motion struct {
	Effect types.CameraEffect

	// SlotW/SlotH is the visible window the asset plays in.
	SlotW, SlotH int
	// AssetW/AssetH are the asset's dimensions after the base cover/height
	// fit, before any zoom.
	AssetW, AssetH int

	ZoomRate float64 // scale units per second
	ZoomMax  float64 // upper clamp; lower clamp is always 1.0
	PanSpeed float64 // pixels per second
}

// ScaleAt returns the zoom factor at time t. Clamped to [1.0, ZoomMax] so
// the asset never shrinks below the slot and reveals letterboxing.
func (m Motion) ScaleAt(t float64) float64 {
	switch m.Effect {
	case types.EffectZoomIn:
		return clamp(1.0+m.ZoomRate*t, 1.0, m.ZoomMax)
	case types.EffectZoomOut:
		return clamp(m.ZoomMax-m.ZoomRate*t, 1.0, m.ZoomMax)
	default:
		return 1.0
	}
}

// XAt returns the horizontal position of the asset's left edge relative to
// the slot at time t. For pans the x travels at PanSpeed and is clamped so
// the visible edge never exceeds the asset's bounds; other effects center.
func (m Motion) XAt(t float64) float64 {
	minX := float64(m.SlotW - m.AssetW)
	if minX > 0 {
		minX = 0
	}
	switch m.Effect {
	case types.EffectPanRight:
		// The window travels right across the asset, so the asset moves
		// left: x decreases from 0 toward SlotW-AssetW.
		return clamp(-m.PanSpeed*t, minX, 0)
	case types.EffectPanLeft:
		return clamp(minX+m.PanSpeed*t, minX, 0)
	default:
		return (float64(m.SlotW) - float64(m.AssetW)*m.ScaleAt(t)) / 2
	}
}

// cropXExpr renders the pan as an ffmpeg crop x expression: the crop
// window's left offset within the asset, mirroring XAt (cropX == -XAt).
func (m Motion) cropXExpr(timeOffset float64) string {
	maxX := m.AssetW - m.SlotW
	if maxX < 0 {
		maxX = 0
	}
	switch m.Effect {
	case types.EffectPanRight:
		return fmt.Sprintf("min(max(%.2f*(t+%.3f)\\,0)\\,%d)", m.PanSpeed, timeOffset, maxX)
	case types.EffectPanLeft:
		return fmt.Sprintf("min(max(%d-%.2f*(t+%.3f)\\,0)\\,%d)", maxX, m.PanSpeed, timeOffset, maxX)
	default:
		return fmt.Sprintf("%d", maxX/2)
	}
}

// zoomExpr renders the zoom as an ffmpeg zoompan z expression. zoompan's
// clock is the output frame counter, so the per-second rate is divided by
// fps and the timeOffset is folded into the starting zoom.
func (m Motion) zoomExpr(timeOffset float64, fps int) string {
	perFrame := m.ZoomRate / float64(fps)
	switch m.Effect {
	case types.EffectZoomIn:
		z0 := clamp(1.0+m.ZoomRate*timeOffset, 1.0, m.ZoomMax)
		return fmt.Sprintf("min(%.5f+%.6f*on\\,%.3f)", z0, perFrame, m.ZoomMax)
	case types.EffectZoomOut:
		z0 := clamp(m.ZoomMax-m.ZoomRate*timeOffset, 1.0, m.ZoomMax)
		return fmt.Sprintf("max(%.5f-%.6f*on\\,1.0)", z0, perFrame)
	default:
		return "1.0"
	}
}

// coverFit returns the dimensions the asset is scaled to before the effect:
// pans fit to the slot height so there is horizontal room to travel; zooms
// and static cover the square slot.
func coverFit(effect types.CameraEffect, assetW, assetH, slotW, slotH int) (int, int) {
	if assetW <= 0 || assetH <= 0 {
		return slotW, slotH
	}
	switch effect {
	case types.EffectPanLeft, types.EffectPanRight:
		w := assetW * slotH / assetH
		if w < slotW {
			// Too narrow to pan across: widen past the slot like the
			// original layout did rather than showing bars.
			w = slotW * 3 / 2
		}
		return w, slotH
	default:
		scaleW := float64(slotW) / float64(assetW)
		scaleH := float64(slotH) / float64(assetH)
		scale := scaleW
		if scaleH > scale {
			scale = scaleH
		}
		w := int(float64(assetW)*scale + 0.5)
		h := int(float64(assetH)*scale + 0.5)
		if w < slotW {
			w = slotW
		}
		if h < slotH {
			h = slotH
		}
		return w, h
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
