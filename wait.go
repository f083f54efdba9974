// Copyright (c) 2026 The elveflow developers. All rights reserved.
// Project site: https://github.com/gotmc/elveflow
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package elveflow

import "time"

// WaitUntil polls pred every interval until it reports done, it returns an
// error, or timeout elapses, in which case ErrTimeout is returned. The
// Elveflow instruments expose no asynchronous completion signal, so every
// "wait for hardware" in this module is bounded polling built on this
// primitive. pred is always tried at least once, immediately.
func WaitUntil(interval, timeout time.Duration, pred func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		done, err := pred()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(interval)
	}
}
