// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package packaging

import (
	"encoding/base64"
	"io"
	"os"
	"strings"

	"daml.com/x/bake/pkg/staleness"
	"daml.com/x/bake/pkg/utils"
)

const (
	launcherPrefix = "#!/bin/sh\n" +
		"set -u\n" +
		"TEMP_FILE=`mktemp -t bake.XXXXXXXXXX` || exit 1\n" +
		"CHILD_PID=0\n" +
		"function exitChild() {\n" +
		"  if [ $CHILD_PID = 0 ]\n" +
		"  then\n" +
		"    EXIT_CODE=1\n" +
		"  else\n" +
		"    wait $CHILD_PID\n" +
		"    EXIT_CODE=$?\n" +
		"  fi\n" +
		"  rm -f $TEMP_FILE\n" +
		"  exit $EXIT_CODE\n" +
		"}\n" +
		"trap 'kill 0; exitChild' INT TERM\n" +
		"cat <<\"EOF\" | openssl enc -d -base64 > $TEMP_FILE\n"

	launcherSuffix = "EOF\n" +
		"java $VM_ARGS -jar $TEMP_FILE $ARGS \"$@\" < /dev/stdin &\n" +
		"CHILD_PID=$!\n" +
		"exitChild\n"

	base64LineLength = 76
)

// LauncherSuffix is the part of the launcher following the encoded jar
func LauncherSuffix(vmArgs, args []string) string {
	return strings.NewReplacer("$VM_ARGS", utils.QuoteArgs(vmArgs), "$ARGS", utils.QuoteArgs(args)).
		Replace(launcherSuffix)
}

// WriteLauncher writes a shell script at dest that extracts the embedded jar and runs it.
// It reports false if dest was already newer than jar.
func (p *Packager) WriteLauncher(dest, jar string, vmArgs, args []string) (bool, error) {
	info, err := os.Stat(jar)
	if err != nil {
		return false, err
	}
	stale, err := staleness.IsStaleAt(dest, info.ModTime())
	if err != nil {
		return false, err
	}
	if !stale {
		p.logger.Debug("up to date", "path", dest)
		return false, nil
	}

	contents, err := os.ReadFile(jar)
	if err != nil {
		return false, err
	}
	err = writeExecutable(dest, func(w io.Writer) error {
		if _, err := io.WriteString(w, launcherPrefix); err != nil {
			return err
		}
		if err := writeBase64Lines(w, contents); err != nil {
			return err
		}
		_, err := io.WriteString(w, LauncherSuffix(vmArgs, args))
		return err
	})
	return err == nil, err
}

func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := min(base64LineLength, len(encoded))
		if _, err := io.WriteString(w, encoded[:n]+"\n"); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
