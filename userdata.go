package main

import (
	"fmt"
	"path"
	"strings"
)

const commonUserData = `#!/bin/bash
sudo apt-get update -y
sudo apt-get install -y nginx
`

const installNode = `curl -sL https://deb.nodesource.com/setup_current.x | sudo -E bash -
sudo apt-get install -y nodejs
`

// appDir is where the application repository is checked out.
func appDir(repo string) string {
	return "/var/www/html/" + strings.TrimSuffix(path.Base(repo), ".git")
}

func frontendUserData(repo string) string {
	dir := appDir(repo)
	return commonUserData +
		fmt.Sprintf("git clone %s %s\n", repo, dir) +
		installNode +
		fmt.Sprintf("cd %s/frontend\n", dir) +
		`sudo npm install
sudo nginx -t
sudo systemctl start nginx
sudo lsof -t -i tcp:80 -s tcp:listen | sudo xargs kill
sudo nohup npm start &
`
}

func backendUserData(repo, mongoURI string) string {
	dir := appDir(repo)
	return commonUserData +
		fmt.Sprintf("git clone %s %s\n", repo, dir) +
		installNode +
		fmt.Sprintf("cd %s/backend\n", dir) +
		fmt.Sprintf("echo \"MONGO_URI=%s\" > .env\n", mongoURI) +
		`echo "PORT=3000" >> .env
sudo npm install
sudo nohup npm start &
sudo systemctl start nginx
`
}
