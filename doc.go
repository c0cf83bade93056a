// Package main provides the entry point of SPARK Admin, the back office of
// the SPARK college platform. It runs a Fiber web application that manages
// staff roles and their permissions, assigns roles to users, shows the
// permission matrix and records every administrative change in an activity
// log. Data is kept with gorm in MySQL, PostgreSQL or SQLite.
package main
