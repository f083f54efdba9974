// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

/*
Package elveflow provides the pieces shared by the Elveflow instrument
sessions: the vendor status-code table and its centralized check, the typed
error taxonomy, the per-user configuration file holding device identities and
calibration paths, and the bounded poll-until-done primitive the valve wait
protocol is built on.

The device sessions themselves live in the ob1 (pressure controller) and
muxdri (valve distributor) packages; the measurement routines built on top of
them live in the protocol package. The vendor driver binding is deliberately
out of scope: each session talks to a small Driver interface mirroring the
vendor entry points, so a real binding, a simulator (see the sim package), or
a test stub can sit behind it.
*/
package elveflow
