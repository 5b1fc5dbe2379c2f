// Package ui renders garagectl in the terminal.
//
// The interactive screen (Model, started with Run) draws the door, a live
// position gauge and the reconciled target gauge:
//
//	╭──────────────────────────────────────╮
//	│  GARAGE DOOR                         │
//	│  http://10.0.0.2:8080                │
//	│  ──────────────────────────────────  │
//	│  Link: ● connected                   │
//	│  Status: moving_up                   │
//	╰──────────────────────────────────────╯
//	  ╔════════════════════════════════╗
//	  ║▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤▤║
//	  ║▁▁▁▁▁▁▁▁▁▁▁▁▁▁▁━━▁▁▁▁▁▁▁▁▁▁▁▁▁▁▁║
//	  ║                                ║
//	  ╩════════════════════════════════╩
//	  Door    ██████████░░░░░░░░░░░░░░░  42%
//	  Target  █████████████████████████ 100%
//
// Dragging with the left mouse button moves the door directly; releasing
// commits open, close or revert, and a short click toggles. Keys: o open,
// c close, t/space toggle, enter open-or-close, r reconnect, esc cancel
// drag, q quit.
//
// The displayed position follows the target on a damped spring. When it
// comes to rest the screen reports arrival for the target's token.
//
// Printer, Header and Result produce the boxed output of the non-interactive
// commands.
package ui
