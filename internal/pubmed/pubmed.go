// Copyright 2025 The Pubflow Authors
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

// Package pubmed generates PubMed article-set XML and uploads deposit
// files to the PubMed FTP dropbox over SFTP.
package pubmed

import (
	"fmt"
	"net"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Uploader delivers deposit files into a remote SFTP directory.
type Uploader struct {
	host     string
	port     int
	username string
	password string
	cwd      string
}

// NewUploader creates an uploader for the given SFTP account. cwd is
// the remote directory deposit files land in; it is created when
// missing.
func NewUploader(host string, port int, username, password, cwd string) *Uploader {
	return &Uploader{
		host:     host,
		port:     port,
		username: username,
		password: password,
		cwd:      cwd,
	}
}

// Upload connects, ensures the target directory exists and writes each
// file. Files are written whole before the next begins; a failure
// leaves earlier files in place, which the dropbox tolerates because
// deposits are idempotent by file name.
func (u *Uploader) Upload(files map[string][]byte) error {
	addr := net.JoinHostPort(u.host, fmt.Sprintf("%d", u.port))
	conn, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            u.username,
		Auth:            []ssh.AuthMethod{ssh.Password(u.password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("pubmed: dial %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("pubmed: open sftp session: %w", err)
	}
	defer client.Close()

	if u.cwd != "" {
		if _, err := client.Stat(u.cwd); err != nil {
			if err := client.MkdirAll(u.cwd); err != nil {
				return fmt.Errorf("pubmed: create remote dir %s: %w", u.cwd, err)
			}
		}
	}

	for name, content := range files {
		if err := u.put(client, name, content); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uploader) put(client *sftp.Client, name string, content []byte) error {
	remote := name
	if u.cwd != "" {
		remote = path.Join(u.cwd, name)
	}
	f, err := client.Create(remote)
	if err != nil {
		return fmt.Errorf("pubmed: create %s: %w", remote, err)
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("pubmed: write %s: %w", remote, err)
	}
	return nil
}
