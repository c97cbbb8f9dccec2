// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"os"

	"github.com/blinklabs-io/lovepoem/internal/secrets"
	"github.com/spf13/cobra"
)

func secretsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage the encrypted secrets file",
		// The secrets file itself may not be readable yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "encrypt <file>",
			Short: "Encrypt a plaintext YAML secrets file to stdout",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				out, err := secrets.Encrypt(data)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(out)
				return err
			},
		},
		&cobra.Command{
			Use:   "decrypt <file>",
			Short: "Decrypt a secrets file to stdout",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := secrets.DecryptFile(args[0])
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(out)
				return err
			},
		},
	)
	return cmd
}
