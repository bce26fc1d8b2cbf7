// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package splitter

// baseGear is the unsalted gear table. It is generated once from a
// fixed seed with SplitMix64; the values are part of the repository
// format and must never change.
var baseGear = generateGear(0x636f66666572_6764)

func generateGear(seed uint64) [256]uint64 {
	var table [256]uint64
	state := seed
	for index := range table {
		state += 0x9e3779b97f4a7c15
		value := state
		value = (value ^ (value >> 30)) * 0xbf58476d1ce4e5b9
		value = (value ^ (value >> 27)) * 0x94d049bb133111eb
		table[index] = value ^ (value >> 31)
	}
	return table
}
