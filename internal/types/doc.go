/*
Package types defines the data structures shared across brachyplan.

# Overview

The types package provides shared type definitions for:
  - Channels (applicator catheters) and their dwell positions
  - The global dwell grid
  - The reconstruction model catalog (physical module inventory)
  - Recorded channel events and persisted session state

# Channel

A Channel carries:
  - Identity: an opaque ID assigned at creation and a dense display Number
  - Planning fields: name, channel index, dwell step, source length, offset
  - Active dwell positions, a subset of the global grid
  - Optional reconstruction model reference and its parameters
  - Multi-channel topology: selected sub-tubes on a base channel, and a
    parent back-reference on the expanded sub-tube channels
  - Visibility and lock flags

Channel values handed out by the channel model are snapshots. Use Clone when a
copy must not share slices or maps with the original.

# Dwell Grid

Positions start at GridStart (1130 mm) and decrease by the step while they stay
at or above GridEnd (109 mm). The grid is global: all channels share it.

# Catalog

ModelInfo describes a reconstruction model with its type and parameter ranges.
Multi-channel models (ModelTypeMultiChannel) expose up to MaxSubTubes physical
sub-tubes; sub-tube 1 is the centre tube.
*/
package types
