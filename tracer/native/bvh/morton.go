package bvh

import "github.com/achernar/stardust/types"

// Spread the low 10 bits of v three positions apart, leaving room for the
// bits of the two other interleaved axes.
func ExpandBits3(v uint32) uint32 {
	v &= 0x3ff
	v = (v | v<<16) & 0xFF0000FF
	v = (v | v<<8) & 0x0F00F00F
	v = (v | v<<4) & 0xC30C30C3
	v = (v | v<<2) & 0x49249249
	return v
}

// MortonKey quantizes a position inside the fixed cubic volume into a
// 30-bit spatial key. Each axis is normalized into [0,1), quantized to 10
// bits (1024 cells) and the axis bits are interleaved x,y,z starting from
// the least significant position. Positions outside the volume clamp into
// the boundary cells instead of being rejected.
func MortonKey(pos types.Vec3, volumeMin, volumeSize float32) uint32 {
	cx := quantize10(pos[0], volumeMin, volumeSize)
	cy := quantize10(pos[1], volumeMin, volumeSize)
	cz := quantize10(pos[2], volumeMin, volumeSize)
	return ExpandBits3(cx) | ExpandBits3(cy)<<1 | ExpandBits3(cz)<<2
}

// Map a coordinate to one of 1024 cells along its axis, clamping at both
// volume boundaries.
func quantize10(v, volumeMin, volumeSize float32) uint32 {
	cell := (v - volumeMin) / volumeSize * 1024
	if cell < 0 {
		cell = 0
	}
	if cell > 1023 {
		cell = 1023
	}
	return uint32(cell)
}
